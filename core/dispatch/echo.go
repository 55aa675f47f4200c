package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// EchoTestString is the fixed payload every echo target must send back.
const EchoTestString = "Echo Test String"

type echoRequest struct {
	Token   int    `json:"token"`
	Payload string `json:"payload"`
}

type echoResponse struct {
	Success   bool `json:"success"`
	ReturnVal struct {
		Payload string `json:"payload"`
	} `json:"returnVal"`
}

// EchoCommand round-trips a test string through each target box to verify it
// is alive and reachable.
type EchoCommand struct{}

func (EchoCommand) Kind() testbed.CommandKind  { return testbed.KindEcho }
func (EchoCommand) Class() testbed.DeviceClass { return testbed.ClassBox }

func (EchoCommand) RequestPayload(token int) ([]byte, error) {
	return json.Marshal(echoRequest{Token: token, Payload: EchoTestString})
}

func (EchoCommand) ParseResponse(dev testbed.DeviceID, payload []byte) (Record, bool) {
	var resp echoResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Record{}, false
	}
	return Record{Device: dev, Success: resp.Success, Detail: resp.ReturnVal.Payload}, true
}

// Report lists each responding box with the payload it echoed back, then the
// boxes that failed or stayed mute.
func (EchoCommand) Report(st *State) []string {
	lines := []string{fmt.Sprintf("%d of %d boxes responded", st.Responded(), st.Expected)}
	for _, dev := range st.Succeeded() {
		lines = append(lines, fmt.Sprintf("    %s OK: %s", dev, st.Detail(dev)))
	}
	return append(lines, missedLines(st, "boxes")...)
}
