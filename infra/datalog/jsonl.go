package datalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timeLayout matches the timestamp format the analysis scripts already parse.
const timeLayout = "2006-01-02 15:04:05.000000"

type jsonlEntry struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// JSONLSink appends records to a timestamped .jsonl file, one JSON object
// per line.
type JSONLSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewJSONLSink creates <name>_<timestamp>.jsonl inside dir, creating the
// directory when needed. A zero timestamp uses the current time. An already
// existing file is refused: every recording run gets its own file.
func NewJSONLSink(dir, name string, timestamp int64) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.jsonl", name, timestamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &JSONLSink{f: f, path: path}, nil
}

// Path returns the log file location.
func (s *JSONLSink) Path() string { return s.path }

// Append writes one record as a JSON line.
func (s *JSONLSink) Append(rec Record) error {
	line, err := json.Marshal(jsonlEntry{
		Timestamp: rec.Timestamp.Format(timeLayout),
		Data:      rec.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (s *JSONLSink) Close() error {
	return s.f.Close()
}
