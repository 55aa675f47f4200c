package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

type discoverRequest struct {
	Token int `json:"token"`
}

type discoverResponse struct {
	Success   bool `json:"success"`
	ReturnVal struct {
		Motes []struct {
			SerialPort      string `json:"serialport"`
			EUI64           string `json:"EUI64"`
			BootloadSuccess bool   `json:"bootload_success"`
		} `json:"motes"`
	} `json:"returnVal"`
}

// DiscoverCommand asks each target box to enumerate its attached motes. The
// response granularity is one message per box carrying many motes, so the
// expected count keys on boxes while the report lists motes.
type DiscoverCommand struct{}

func (DiscoverCommand) Kind() testbed.CommandKind  { return testbed.KindDiscover }
func (DiscoverCommand) Class() testbed.DeviceClass { return testbed.ClassBox }

func (DiscoverCommand) RequestPayload(token int) ([]byte, error) {
	return json.Marshal(discoverRequest{Token: token})
}

// ParseResponse flattens a successful box response into one MoteStatus per
// attached mote. A box reporting failure is still counted, with an empty
// inventory.
func (DiscoverCommand) ParseResponse(dev testbed.DeviceID, payload []byte) (Record, bool) {
	var resp discoverResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Record{}, false
	}
	rec := Record{Device: dev, Success: resp.Success}
	for _, m := range resp.ReturnVal.Motes {
		rec.Motes = append(rec.Motes, MoteStatus{
			Box:      dev,
			EUI64:    m.EUI64,
			Port:     m.SerialPort,
			Bootload: m.BootloadSuccess,
		})
	}
	return rec, true
}

// Report lists the discovered motes, one line per mote with its box, EUI-64,
// serial port and bootload status, followed by the boxes that failed or
// stayed mute.
func (DiscoverCommand) Report(st *State) []string {
	lines := []string{fmt.Sprintf("Discovered %d motes", len(st.Motes))}
	for _, m := range st.Motes {
		eui := m.EUI64
		if eui == "" {
			eui = "-"
		}
		status := 0
		if m.Bootload {
			status = 1
		}
		lines = append(lines, fmt.Sprintf("    %s %s %s %d", m.Box, eui, m.Port, status))
	}
	return append(lines, missedLines(st, "boxes")...)
}
