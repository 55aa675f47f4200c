package datalog

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openwsn-berkeley/opentb/infra/logger"
)

var (
	messagesRecorded prometheus.Counter
	messagesDropped  prometheus.Counter
)

func newCollectors() (prometheus.Counter, prometheus.Counter) {
	rec := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opentb_datalog_messages_recorded_total",
		Help: "Messages appended to the recording sinks.",
	})
	drop := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opentb_datalog_messages_dropped_total",
		Help: "Messages dropped because they were not JSON or a sink failed.",
	})
	return rec, drop
}

// MustRegisterMetrics registers the recorder collectors on reg. A nil reg
// registers on the default prometheus registry.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(messagesRecorded, messagesDropped)
}

// ResetMetrics rebuilds the collectors and registers them on reg. Tests use
// it to observe counters on a private registry.
func ResetMetrics(reg prometheus.Registerer) {
	messagesRecorded, messagesDropped = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func init() {
	messagesRecorded, messagesDropped = newCollectors()
	MustRegisterMetrics(nil)
}

// StartMetricsServer exposes Prometheus metrics on addr until ctx is
// cancelled. A dedicated ServeMux keeps the handler off the default mux.
func StartMetricsServer(ctx context.Context, addr string) error {
	log := logger.New("datalog-metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("metrics server shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
