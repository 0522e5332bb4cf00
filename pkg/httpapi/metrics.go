package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// Metrics holds the incident API collectors.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      prometheus.Histogram
	dispositions *prometheus.CounterVec
	rows         prometheus.Histogram
	rateLimited  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsm_incident_requests_total",
			Help: "Incident detail requests by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsm_incident_reconstruct_seconds",
			Help:    "Incident reconstruction latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		dispositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsm_incident_disposition_total",
			Help: "Reconstructed incidents by disposition.",
		}, []string{"disposition"}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsm_incident_rows",
			Help:    "Timeline rows returned per incident.",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsm_incident_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.dispositions, m.rows, m.rateLimited)
	}
	return m
}

func (m *Metrics) observe(outcome string, seconds float64, inc *incident.Incident) {
	m.requests.WithLabelValues(outcome).Inc()
	m.latency.Observe(seconds)
	if inc == nil {
		return
	}
	m.dispositions.WithLabelValues(string(inc.Disposition)).Inc()
	m.rows.Observe(float64(len(inc.Rows)))
}

func (m *Metrics) limited() {
	m.rateLimited.Inc()
	m.requests.WithLabelValues(outcomeRateLimited).Inc()
}
