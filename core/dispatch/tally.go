package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// countedResponse is the payload shape shared by the flashing commands. The
// remote bootloader wrapper publishes intermediate artifacts carrying an
// "exception" key; those must not be counted.
type countedResponse struct {
	Success   *bool           `json:"success"`
	Exception json.RawMessage `json:"exception"`
}

// parseCountedResponse interprets a success/exception payload. ok is false
// for exception artifacts, malformed JSON and payloads carrying neither key.
func parseCountedResponse(dev testbed.DeviceID, payload []byte) (Record, bool) {
	var resp countedResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Record{}, false
	}
	if resp.Exception != nil || resp.Success == nil {
		return Record{}, false
	}
	return Record{Device: dev, Success: *resp.Success}, true
}

// tallyLines renders the success tally and per-device outcome lines of the
// flashing commands. unit names the device class in the tally header.
func tallyLines(st *State, unit string) []string {
	lines := []string{fmt.Sprintf("%d of %d %s reported with success",
		st.SuccessCount, st.MsgCount, unit)}
	for _, dev := range st.Succeeded() {
		lines = append(lines, fmt.Sprintf("    %s OK", dev))
	}
	return append(lines, missedLines(st, unit)...)
}

// missedLines renders the report tail shared by every command: FAIL for each
// device whose latest response reported failure, then MUTE for each explicit
// target that never answered. A wildcard dispatch cannot name its mute
// devices and renders a count instead.
func missedLines(st *State, unit string) []string {
	var lines []string
	for _, dev := range st.Failed() {
		lines = append(lines, fmt.Sprintf("    %s FAIL", dev))
	}
	for _, dev := range st.Missing() {
		lines = append(lines, fmt.Sprintf("    %s MUTE", dev))
	}
	if st.Targets.Wildcard() {
		if mute := st.MuteCount(); mute > 0 {
			lines = append(lines, fmt.Sprintf("    %d %s MUTE", mute, unit))
		}
	}
	return lines
}
