package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/openwsn-berkeley/opentb/core/events"
	"github.com/openwsn-berkeley/opentb/core/logger"
	"github.com/openwsn-berkeley/opentb/core/mqtt"
	"github.com/openwsn-berkeley/opentb/core/testbed"
	"github.com/openwsn-berkeley/opentb/internal/eventbus"
)

// recordQueueHeadroom is the extra capacity of the response queue beyond the
// expected count, absorbing duplicate arrivals without blocking the
// transport's delivery goroutine.
const recordQueueHeadroom = 16

// requestToken is the correlation token embedded in every request payload.
// Responses are correlated by topic, not by token, so a fixed sentinel is
// all the firmware expects.
const requestToken = 123

// Runner drives one command dispatch end to end: subscribe to the response
// topics, fan the command out to the targets, collect responses until all
// expected devices answered or the deadline elapses, render the report and
// tear the session down. A Runner owns its session and closes it when the
// dispatch finishes.
type Runner struct {
	session mqtt.Session
	timeout time.Duration
	fleet   testbed.FleetSize
	log     logger.Logger
	bus     eventbus.EventBus
}

// NewRunner builds a Runner on the given session. responseTimeout bounds the
// wait for responses; zero or negative selects the default. Zero fleet
// dimensions fall back to the deployed testbed sizes. bus may be nil when no
// progress events are wanted.
func NewRunner(session mqtt.Session, responseTimeout time.Duration, fleet testbed.FleetSize, log logger.Logger, bus eventbus.EventBus) (*Runner, error) {
	if session == nil {
		return nil, fmt.Errorf("dispatch: nil session provided to NewRunner")
	}
	if log == nil {
		return nil, fmt.Errorf("dispatch: nil logger provided to NewRunner")
	}
	if responseTimeout <= 0 {
		responseTimeout = DefaultResponseTimeout
	}
	if fleet.Motes <= 0 {
		fleet.Motes = testbed.DefaultMotes
	}
	if fleet.Boxes <= 0 {
		fleet.Boxes = testbed.DefaultBoxes
	}
	return &Runner{
		session: session,
		timeout: responseTimeout,
		fleet:   fleet,
		log:     log,
		bus:     bus,
	}, nil
}

// Run executes one dispatch of cmd to targets. It returns the final
// aggregation state. A non-nil error means the dispatch could not be set up
// (subscription or payload building failed); devices that fail or stay mute
// are reported in the State, not as errors. Cancelling ctx stops the
// collection early and reports the partial results.
func (r *Runner) Run(ctx context.Context, cmd Command, targets testbed.TargetSet) (*State, error) {
	if cmd == nil {
		return nil, fmt.Errorf("dispatch: nil command provided to Run")
	}

	start := time.Now()
	expected := targets.ExpectedResponses(cmd.Class(), r.fleet)
	st := newState(cmd, targets, expected, requestToken)
	records := make(chan Record, expected+recordQueueHeadroom)

	r.log.Infof("dispatching %s to %s, expecting %d responses",
		cmd.Kind(), targets.String(), expected)

	subbed, err := r.subscribe(cmd, targets, records, start)
	defer r.teardown(subbed)
	if err != nil {
		return nil, err
	}

	payload, err := cmd.RequestPayload(st.Token)
	if err != nil {
		return nil, fmt.Errorf("build %s payload: %w", cmd.Kind(), err)
	}
	r.fanOut(cmd, targets, payload)

	r.collect(ctx, st, records)
	dispatchesTotal.WithLabelValues(string(st.Kind), dispatchResult(st)).Inc()
	r.report(cmd, st)
	return st, nil
}

// subscribe registers the response subscriptions before anything is
// published, so no response can slip past the collector. It returns the
// topics that were successfully subscribed, also when a later subscription
// fails.
func (r *Runner) subscribe(cmd Command, targets testbed.TargetSet, records chan<- Record, start time.Time) ([]string, error) {
	handler := func(topic string, payload []byte) {
		dev, err := testbed.DeviceFromResponseTopic(cmd.Class(), cmd.Kind(), topic)
		if err != nil {
			r.log.Warnf("dropping message on unexpected topic %q", topic)
			return
		}
		rec, ok := cmd.ParseResponse(dev, payload)
		if !ok {
			r.log.Debugf("ignoring response from %s", dev)
			return
		}
		rec.Latency = time.Since(start)
		select {
		case records <- rec:
		default:
			r.log.Warnf("response queue full, dropping response from %s", dev)
		}
	}

	var topics []string
	if targets.Wildcard() {
		topics = []string{testbed.ResponseTopic(cmd.Class(), testbed.Wildcard, cmd.Kind())}
	} else {
		for _, dev := range targets.Devices() {
			topics = append(topics, testbed.ResponseTopic(cmd.Class(), dev, cmd.Kind()))
		}
	}

	subbed := make([]string, 0, len(topics))
	for _, topic := range topics {
		if err := r.session.Subscribe(topic, handler); err != nil {
			return subbed, fmt.Errorf("subscribe %s: %w", topic, err)
		}
		subbed = append(subbed, topic)
		r.log.Debugf("subscribed to %s", topic)
	}
	return subbed, nil
}

// fanOut publishes the command payload to every target. Publishing is best
// effort: a failed publish is logged and counted, and the device simply shows
// up mute in the report.
func (r *Runner) fanOut(cmd Command, targets testbed.TargetSet, payload []byte) {
	if targets.Wildcard() {
		r.publishOne(cmd, testbed.Wildcard, payload)
		return
	}
	for _, dev := range targets.Devices() {
		r.publishOne(cmd, dev, payload)
	}
}

func (r *Runner) publishOne(cmd Command, dev testbed.DeviceID, payload []byte) {
	topic := testbed.CommandTopic(cmd.Class(), dev, cmd.Kind())
	if err := r.session.Publish(topic, payload); err != nil {
		publishTotal.WithLabelValues(string(cmd.Kind()), "failure").Inc()
		r.log.Errorf("publish to %s failed: %v", topic, err)
		return
	}
	publishTotal.WithLabelValues(string(cmd.Kind()), "success").Inc()
	r.log.Debugf("published %s to %s", cmd.Kind(), topic)
}

// collect folds responses into st until the expected count is reached, the
// deadline elapses or ctx is cancelled. The deadline is a single fixed
// timer: late responses never extend it.
func (r *Runner) collect(ctx context.Context, st *State, records <-chan Record) {
	if r.bus != nil {
		r.bus.Publish(events.DispatchEvent{
			Kind:     st.Kind,
			Targets:  st.Targets.String(),
			Expected: st.Expected,
		})
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	for st.MsgCount < st.Expected {
		select {
		case rec := <-records:
			r.fold(st, rec)
		case <-timer.C:
			st.TimedOut = true
		case <-ctx.Done():
			st.Interrupted = true
		}
		if st.TimedOut || st.Interrupted {
			break
		}
	}

	// The deadline bounds only the blocking wait. Responses the transport
	// already queued are still folded, without waiting for more.
	for st.MsgCount < st.Expected {
		select {
		case rec := <-records:
			r.fold(st, rec)
		default:
			return
		}
	}
}

func (r *Runner) fold(st *State, rec Record) {
	st.fold(rec)
	outcome := "failure"
	if rec.Success {
		outcome = "success"
	}
	responsesTotal.WithLabelValues(string(st.Kind), outcome).Inc()
	responseLatency.WithLabelValues(string(st.Kind)).Observe(rec.Latency.Seconds())
	if r.bus != nil {
		r.bus.Publish(events.ResponseEvent{
			Device:  rec.Device,
			Kind:    st.Kind,
			Success: rec.Success,
			Latency: rec.Latency,
		})
	}
	r.log.Debugf("response %d/%d from %s", st.MsgCount, st.Expected, rec.Device)
}

// report renders the command's report lines between banner rules, matching
// the operator-facing output the testbed has always printed.
func (r *Runner) report(cmd Command, st *State) {
	if st.TimedOut {
		r.log.Errorf("response timeout after %s, %d of %d devices responded",
			r.timeout, st.Responded(), st.Expected)
	}
	if st.Interrupted {
		r.log.Warnf("interrupted, reporting partial results")
	}
	r.log.Infof("-------------------------------------------------")
	for _, line := range cmd.Report(st) {
		r.log.Infof("%s", line)
	}
	if summary := latencySummary(st); summary != "" {
		r.log.Infof("%s", summary)
	}
	r.log.Infof("-------------------------------------------------")
}

// teardown unsubscribes whatever was subscribed and closes the session. It
// runs on every exit path of Run, including setup failures.
func (r *Runner) teardown(topics []string) {
	if len(topics) > 0 {
		if err := r.session.Unsubscribe(topics...); err != nil {
			r.log.Warnf("unsubscribe failed: %v", err)
		}
	}
	r.session.Close()
}

func dispatchResult(st *State) string {
	switch {
	case st.Interrupted:
		return "interrupted"
	case st.TimedOut:
		return "timeout"
	default:
		return "completed"
	}
}
