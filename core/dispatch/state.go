package dispatch

import (
	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// State is the aggregation state of one dispatch. It is created when the
// dispatch starts, mutated only by the collecting goroutine and read by the
// report renderer once collection is over, so it needs no locking.
type State struct {
	Kind    testbed.CommandKind
	Targets testbed.TargetSet
	// Expected is the number of responses that completes the dispatch.
	Expected int
	// Token is the correlation token embedded in the request payload.
	Token int

	// Records holds the counted responses in arrival order.
	Records []Record
	// MsgCount is the number of counted responses, duplicates included.
	MsgCount int
	// SuccessCount is the number of counted responses reporting success.
	SuccessCount int
	// Motes is the mote inventory flattened across discover responses.
	Motes []MoteStatus

	// TimedOut is set when the deadline elapsed before Expected responses
	// arrived.
	TimedOut bool
	// Interrupted is set when the dispatch was cancelled by the caller.
	Interrupted bool

	outcomes map[testbed.DeviceID]Outcome
	details  map[testbed.DeviceID]string
	order    []testbed.DeviceID
}

func newState(cmd Command, targets testbed.TargetSet, expected, token int) *State {
	return &State{
		Kind:     cmd.Kind(),
		Targets:  targets,
		Expected: expected,
		Token:    token,
		outcomes: make(map[testbed.DeviceID]Outcome),
		details:  make(map[testbed.DeviceID]string),
	}
}

// fold records one counted response. Every arrival increments MsgCount, but
// the per-device outcome keeps only the latest arrival, so a device can never
// be listed as both OK and FAIL.
func (s *State) fold(rec Record) {
	s.Records = append(s.Records, rec)
	s.MsgCount++
	if rec.Success {
		s.SuccessCount++
	}
	if _, seen := s.outcomes[rec.Device]; !seen {
		s.order = append(s.order, rec.Device)
	}
	if rec.Success {
		s.outcomes[rec.Device] = OutcomeOK
	} else {
		s.outcomes[rec.Device] = OutcomeFail
	}
	s.details[rec.Device] = rec.Detail
	s.Motes = append(s.Motes, rec.Motes...)
}

// Responded reports how many distinct devices answered.
func (s *State) Responded() int {
	return len(s.outcomes)
}

// Succeeded returns the devices whose latest response reported success, in
// first-arrival order.
func (s *State) Succeeded() []testbed.DeviceID {
	return s.withOutcome(OutcomeOK)
}

// Failed returns the devices whose latest response reported failure, in
// first-arrival order.
func (s *State) Failed() []testbed.DeviceID {
	return s.withOutcome(OutcomeFail)
}

func (s *State) withOutcome(want Outcome) []testbed.DeviceID {
	var devs []testbed.DeviceID
	for _, dev := range s.order {
		if s.outcomes[dev] == want {
			devs = append(devs, dev)
		}
	}
	return devs
}

// Missing returns the explicitly requested devices that never responded, in
// request order. It is nil for wildcard dispatches, where the device names
// are not known up front.
func (s *State) Missing() []testbed.DeviceID {
	responded := make(map[testbed.DeviceID]bool, len(s.outcomes))
	for dev := range s.outcomes {
		responded[dev] = true
	}
	return s.Targets.Missing(responded)
}

// MuteCount reports how many expected devices never responded.
func (s *State) MuteCount() int {
	mute := s.Expected - len(s.outcomes)
	if mute < 0 {
		return 0
	}
	return mute
}

// Detail returns the kind-specific detail of the device's latest response.
func (s *State) Detail(dev testbed.DeviceID) string {
	return s.details[dev]
}

// Latencies returns the arrival latency of every counted response in
// seconds, in arrival order.
func (s *State) Latencies() []float64 {
	if len(s.Records) == 0 {
		return nil
	}
	lat := make([]float64, len(s.Records))
	for i, rec := range s.Records {
		lat[i] = rec.Latency.Seconds()
	}
	return lat
}
