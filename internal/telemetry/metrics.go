package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes recorded by Metrics.Submission
const (
	OutcomeSent        = "sent"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeForbidden   = "forbidden"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	submissions  *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
}

// NewMetrics registers the relay collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "submissions_total",
			Help:      "Contact submissions by outcome",
		}, []string{"outcome"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "send_duration_seconds",
			Help:      "Time spent handing a message to the mail transport",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"transport", "result"}),
	}
	reg.MustRegister(m.submissions, m.sendDuration)
	return m
}

// Submission counts one request outcome
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveSend records one transport call
func (m *Metrics) ObserveSend(transport string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sendDuration.WithLabelValues(transport, result).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
