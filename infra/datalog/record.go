// Package datalog captures testbed MQTT traffic into persistent sinks. It
// backs the always-on experiment logger: no aggregation, no state, just an
// append per message.
package datalog

import (
	"encoding/json"
	"time"
)

// Record is one captured testbed message.
type Record struct {
	Timestamp time.Time
	Topic     string
	Data      json.RawMessage
}

// Sink persists captured records. Append is called from the transport's
// delivery goroutine and must be safe for concurrent use.
type Sink interface {
	Append(rec Record) error
	Close() error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) Append(Record) error { return nil }
func (NopSink) Close() error        { return nil }

// MultiSink fans every record out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append forwards the record to all sinks, returning the first error.
func (m *MultiSink) Append(rec Record) error {
	for _, s := range m.sinks {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks, returning the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
