package dispatch

import (
	"time"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// Outcome classifies one device at report time.
type Outcome int

const (
	// OutcomeOK marks a device whose last response reported success.
	OutcomeOK Outcome = iota
	// OutcomeFail marks a device whose last response reported a failure.
	OutcomeFail
	// OutcomeMute marks a device that never responded before the deadline.
	OutcomeMute
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeFail:
		return "FAIL"
	case OutcomeMute:
		return "MUTE"
	default:
		return "UNKNOWN"
	}
}

// MoteStatus is one mote listed in a box's discover response.
type MoteStatus struct {
	// Box is the box the mote is attached to.
	Box testbed.DeviceID
	// EUI64 is the mote's hardware address, empty when the box could not
	// read one.
	EUI64 string
	// Port is the serial port the mote is attached to.
	Port string
	// Bootload reports whether the box managed to talk to the mote's
	// bootloader.
	Bootload bool
}

// Record is one counted device response.
type Record struct {
	Device  testbed.DeviceID
	Success bool
	// Detail carries the kind-specific result, for example the payload a
	// box echoed back.
	Detail string
	// Motes is only populated by discover responses.
	Motes []MoteStatus
	// Latency is the arrival time measured from the start of the dispatch.
	Latency time.Duration
}

// Command defines one testbed operation: the payload it publishes, how
// inbound responses are interpreted and how the final report is rendered.
// Implementations are stateless; all per-dispatch accumulation lives in
// State, so one Command value can serve any number of dispatches.
type Command interface {
	// Kind is the command segment of the publish and response topics.
	Kind() testbed.CommandKind

	// Class is the device class the command addresses.
	Class() testbed.DeviceClass

	// RequestPayload builds the JSON payload published to every target.
	RequestPayload(token int) ([]byte, error)

	// ParseResponse interprets one inbound response payload. ok is false
	// for messages that must be dropped without being counted, such as
	// malformed JSON or bootloader exception artifacts.
	ParseResponse(dev testbed.DeviceID, payload []byte) (rec Record, ok bool)

	// Report renders the per-device report lines for a finished dispatch.
	Report(st *State) []string
}
