package prometheus

import (
	"time"

	"github.com/rfmesh/hes/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type pullMetrics struct {
	cycles       *prometheus.CounterVec
	cycleSeconds *prometheus.HistogramVec
	missing      *prometheus.CounterVec
}

func init() {
	metrics.RegisterPullMetricsConstructor(newPullMetrics)
}

func newPullMetrics() metrics.PullMetrics {
	reg := metrics.GetRegistry()

	return &pullMetrics{
		cycles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_pull_cycles_total",
				Help: "Total number of completed pull cycles by gateway, profile and outcome",
			},
			[]string{"gateway_id", "profile", "outcome"},
		),
		cycleSeconds: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hes_pull_cycle_duration_seconds",
				Help: "Duration of a pull cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"gateway_id", "profile"},
		),
		missing: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_pull_missing_cycles_total",
				Help: "Total number of cycle-id gaps detected per gateway",
			},
			[]string{"gateway_id"},
		),
	}
}

func (m *pullMetrics) RecordCycle(gatewayID, profile string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.cycles.WithLabelValues(gatewayID, profile, outcome).Inc()
	m.cycleSeconds.WithLabelValues(gatewayID, profile).Observe(duration.Seconds())
}

func (m *pullMetrics) RecordMissingCycle(gatewayID string) {
	if m == nil {
		return
	}
	m.missing.WithLabelValues(gatewayID).Inc()
}
