// Package metrics registers the Prometheus instruments for the
// authorization server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CodesIssued      prometheus.Counter
	TokensIssued     *prometheus.CounterVec
	GrantFailures    *prometheus.CounterVec
	TokensRevoked    prometheus.Counter
	TokenLatencyMs   prometheus.Histogram
	ConsentDecisions *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivegate_authorization_codes_issued_total",
			Help: "Total authorization codes minted",
		}),
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_tokens_issued_total",
			Help: "Total token pairs issued, by grant type",
		}, []string{"grant_type"}),
		GrantFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_grant_failures_total",
			Help: "Failed token grants, by OAuth error code",
		}, []string{"error"}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drivegate_refresh_tokens_revoked_total",
			Help: "Refresh tokens revoked outside rotation",
		}),
		TokenLatencyMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "drivegate_token_endpoint_duration_ms",
			Help:    "Latency of the token endpoint in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
		ConsentDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_consent_decisions_total",
			Help: "Consent screen outcomes",
		}, []string{"decision"}),
	}
}

// ObserveTokenLatency records one token endpoint round trip.
func (m *Metrics) ObserveTokenLatency(start time.Time) {
	m.TokenLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
