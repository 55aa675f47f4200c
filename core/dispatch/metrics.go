package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishTotal    *prometheus.CounterVec
	responsesTotal  *prometheus.CounterVec
	responseLatency *prometheus.HistogramVec
	dispatchesTotal *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec) {
	pub := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opentb_publish_total",
		Help: "Command publishes, partitioned by command kind and result.",
	}, []string{"kind", "result"})

	resp := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opentb_responses_total",
		Help: "Counted device responses, partitioned by command kind and outcome.",
	}, []string{"kind", "outcome"})

	lat := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opentb_response_latency_seconds",
		Help:    "Device response latency measured from the start of the dispatch.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opentb_dispatches_total",
		Help: "Finished dispatches, partitioned by command kind and result.",
	}, []string{"kind", "result"})

	return pub, resp, lat, dispatches
}

// MustRegisterMetrics registers the dispatch collectors on reg. A nil reg
// registers on the default prometheus registry. It panics when a collector
// is already registered.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(publishTotal, responsesTotal, responseLatency, dispatchesTotal)
}

// ResetMetrics rebuilds the collectors and registers them on reg. Tests use
// it to observe counters on a private registry.
func ResetMetrics(reg prometheus.Registerer) {
	publishTotal, responsesTotal, responseLatency, dispatchesTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func init() {
	publishTotal, responsesTotal, responseLatency, dispatchesTotal = newCollectors()
	MustRegisterMetrics(nil)
}
