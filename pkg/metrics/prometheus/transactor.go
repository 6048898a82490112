package prometheus

import (
	"time"

	"github.com/rfmesh/hes/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type transactorMetrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func init() {
	metrics.RegisterTransactorMetricsConstructor(newTransactorMetrics)
}

func newTransactorMetrics() metrics.TransactorMetrics {
	reg := metrics.GetRegistry()

	return &transactorMetrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_transactor_outcomes_total",
				Help: "Total number of completed transactions by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hes_transactor_duration_milliseconds",
				Help: "Duration of a transaction from first attempt to resolution",
				Buckets: []float64{
					50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000,
				},
			},
			[]string{"command"},
		),
		retries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_transactor_retries_total",
				Help: "Total number of retry attempts by command and route",
			},
			[]string{"command", "route"}, // route: "primary" | "alternate"
		),
	}
}

func (m *transactorMetrics) RecordOutcome(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(float64(duration.Milliseconds()))
}

func (m *transactorMetrics) RecordRetry(command string, alternate bool) {
	if m == nil {
		return
	}
	route := "primary"
	if alternate {
		route = "alternate"
	}
	m.retries.WithLabelValues(command, route).Inc()
}
