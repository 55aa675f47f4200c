package dispatch

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

func TestDiscoverParseResponse(t *testing.T) {
	payload := []byte(`{"success":true,"returnVal":{"motes":[
		{"serialport":"/dev/ttyUSB0","EUI64":"00-12-4b-00-14-b5-b6-44","bootload_success":true},
		{"serialport":"/dev/ttyUSB1","bootload_success":false}
	]}}`)

	rec, ok := DiscoverCommand{}.ParseResponse("otbox05", payload)
	if !ok {
		t.Fatalf("expected response to be counted")
	}
	if !rec.Success || len(rec.Motes) != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Motes[0].Box != "otbox05" || rec.Motes[0].EUI64 != "00-12-4b-00-14-b5-b6-44" {
		t.Errorf("unexpected first mote %+v", rec.Motes[0])
	}
	if rec.Motes[1].EUI64 != "" || rec.Motes[1].Bootload {
		t.Errorf("unexpected second mote %+v", rec.Motes[1])
	}
}

func TestDiscoverFailedBoxContributesNoMotes(t *testing.T) {
	rec, ok := DiscoverCommand{}.ParseResponse("otbox05", []byte(`{"success":false}`))
	if !ok {
		t.Fatalf("a failed box must still be counted")
	}
	if rec.Success || len(rec.Motes) != 0 {
		t.Errorf("unexpected record %+v", rec)
	}

	if _, ok := (DiscoverCommand{}).ParseResponse("otbox05", []byte("not json")); ok {
		t.Errorf("malformed payload must be dropped")
	}
}

func TestDiscoverRequestPayload(t *testing.T) {
	payload, err := DiscoverCommand{}.RequestPayload(123)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var req map[string]any
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req) != 1 || req["token"] != float64(123) {
		t.Errorf("expected bare token payload, got %s", payload)
	}
}

func TestDiscoverReport(t *testing.T) {
	st := newState(DiscoverCommand{}, testbed.NewTargetSet("otbox01", "otbox02", "otbox03"), 3, 123)
	rec, _ := DiscoverCommand{}.ParseResponse("otbox01", []byte(`{"success":true,"returnVal":{"motes":[
		{"serialport":"/dev/ttyUSB0","EUI64":"aa-bb","bootload_success":true},
		{"serialport":"/dev/ttyUSB1","bootload_success":false}
	]}}`))
	st.fold(rec)
	rec, _ = DiscoverCommand{}.ParseResponse("otbox02", []byte(`{"success":false}`))
	st.fold(rec)

	lines := DiscoverCommand{}.Report(st)
	want := []string{
		"Discovered 2 motes",
		"    otbox01 aa-bb /dev/ttyUSB0 1",
		"    otbox01 - /dev/ttyUSB1 0",
		"    otbox02 FAIL",
		"    otbox03 MUTE",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("report mismatch:\ngot:\n%s\nwant:\n%s",
			strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}
