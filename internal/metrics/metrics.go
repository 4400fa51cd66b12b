// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacolhe_http_requests_total",
			Help: "HTTP requests by route template and status code.",
		},
		[]string{"route", "status"},
	)

	RelayUpstreamSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iacolhe_relay_upstream_seconds",
			Help:    "Latency of completion API calls made by the relays.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"relay"},
	)

	RelayOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacolhe_relay_outcomes_total",
			Help: "Relay responses by relay and returned status code.",
		},
		[]string{"relay", "status"},
	)

	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacolhe_documents_processed_total",
			Help: "Uploaded documents by final intake status.",
		},
		[]string{"status"},
	)
)

// Register adds the collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, RelayUpstreamSeconds, RelayOutcomes, DocumentsProcessed)
}

func ObserveRelay(relay string, status int, started time.Time) {
	RelayUpstreamSeconds.WithLabelValues(relay).Observe(time.Since(started).Seconds())
	RelayOutcomes.WithLabelValues(relay, strconv.Itoa(status)).Inc()
}
