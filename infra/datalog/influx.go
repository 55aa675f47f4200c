package datalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/openwsn-berkeley/opentb/infra/logger"
)

// InfluxConfig defines an optional InfluxDB endpoint records are mirrored to
// for dashboarding.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Enabled reports whether an endpoint is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// InfluxSink writes captured records to an InfluxDB bucket using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a dead dashboard never blocks
// recording.
func NewInfluxSinkWithFallback(cfg InfluxConfig) Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

// Append writes one record as a point tagged with its topic.
func (s *InfluxSink) Append(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("testbed_message").
		AddTag("topic", rec.Topic).
		AddField("payload", string(rec.Data)).
		SetTime(rec.Timestamp)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write point: %w", err)
	}
	return nil
}

// Close shuts the InfluxDB client down.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
