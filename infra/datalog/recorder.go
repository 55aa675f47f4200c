package datalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openwsn-berkeley/opentb/core/logger"
	coremqtt "github.com/openwsn-berkeley/opentb/core/mqtt"
)

// UDPInjectTopic is the default capture topic: packets the motes inject over
// UDP arrive here.
const UDPInjectTopic = "opentestbed/uinject/arrived"

// Recorder captures every message on one topic filter into a sink. It owns
// its session and closes it when recording stops; the sink stays open for
// the caller.
type Recorder struct {
	session coremqtt.Session
	sink    Sink
	topic   string
	log     logger.Logger
}

// NewRecorder builds a Recorder capturing topic into sink.
func NewRecorder(session coremqtt.Session, sink Sink, topic string, log logger.Logger) (*Recorder, error) {
	if session == nil {
		return nil, fmt.Errorf("datalog: nil session provided to NewRecorder")
	}
	if sink == nil {
		return nil, fmt.Errorf("datalog: nil sink provided to NewRecorder")
	}
	if log == nil {
		return nil, fmt.Errorf("datalog: nil logger provided to NewRecorder")
	}
	if topic == "" {
		topic = UDPInjectTopic
	}
	return &Recorder{session: session, sink: sink, topic: topic, log: log}, nil
}

// Run records until ctx is cancelled or runtime elapses; a zero runtime
// records until interrupted. Only valid JSON payloads are captured, matching
// what the sinks store.
func (r *Recorder) Run(ctx context.Context, runtime time.Duration) error {
	handler := func(topic string, payload []byte) {
		if !json.Valid(payload) {
			messagesDropped.Inc()
			r.log.Warnf("dropping non-JSON message on %s", topic)
			return
		}
		rec := Record{Timestamp: time.Now(), Topic: topic, Data: json.RawMessage(payload)}
		if err := r.sink.Append(rec); err != nil {
			messagesDropped.Inc()
			r.log.Errorf("append record: %v", err)
			return
		}
		messagesRecorded.Inc()
		r.log.Debugf("recorded message on %s", topic)
	}

	if err := r.session.Subscribe(r.topic, handler); err != nil {
		r.session.Close()
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	r.log.Infof("recording %s", r.topic)

	var bound <-chan time.Time
	if runtime > 0 {
		timer := time.NewTimer(runtime)
		defer timer.Stop()
		bound = timer.C
	}
	select {
	case <-ctx.Done():
		r.log.Infof("interrupted, stopping recorder")
	case <-bound:
		r.log.Infof("runtime of %s elapsed, stopping recorder", runtime)
	}

	if err := r.session.Unsubscribe(r.topic); err != nil {
		r.log.Warnf("unsubscribe failed: %v", err)
	}
	r.session.Close()
	return nil
}
