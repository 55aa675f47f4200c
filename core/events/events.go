package events

import (
	"time"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// DispatchEvent is published once when a dispatch starts collecting.
type DispatchEvent struct {
	Kind     testbed.CommandKind
	Targets  string
	Expected int
}

// ResponseEvent is published for every device response folded into the
// aggregate, in arrival order.
type ResponseEvent struct {
	Device  testbed.DeviceID
	Kind    testbed.CommandKind
	Success bool
	Latency time.Duration
}
