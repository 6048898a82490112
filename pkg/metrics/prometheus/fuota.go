package prometheus

import (
	"github.com/rfmesh/hes/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fuotaMetrics struct {
	phaseEnters  *prometheus.CounterVec
	phaseFailures *prometheus.CounterVec
	active       prometheus.Gauge
	pageBytes    *prometheus.HistogramVec
}

func init() {
	metrics.RegisterFuotaMetricsConstructor(newFuotaMetrics)
}

func newFuotaMetrics() metrics.FuotaMetrics {
	reg := metrics.GetRegistry()

	return &fuotaMetrics{
		phaseEnters: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_fuota_phase_enters_total",
				Help: "Total number of FUOTA FSM phase entries by gateway and phase",
			},
			[]string{"gateway_id", "phase"},
		),
		phaseFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_fuota_phase_failures_total",
				Help: "Total number of FUOTA FSM phases that failed and triggered rollback",
			},
			[]string{"gateway_id", "phase"},
		),
		active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "hes_fuota_active_transfers",
				Help: "Current number of in-flight firmware transfers",
			},
		),
		pageBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hes_fuota_page_bytes",
				Help: "Distribution of firmware page sizes transferred",
				Buckets: []float64{64, 128, 256, 512, 1024, 2048, 4096},
			},
			[]string{"gateway_id"},
		),
	}
}

func (m *fuotaMetrics) RecordPhaseEnter(gatewayID, phase string) {
	if m == nil {
		return
	}
	m.phaseEnters.WithLabelValues(gatewayID, phase).Inc()
}

func (m *fuotaMetrics) RecordPhaseFailure(gatewayID, phase string) {
	if m == nil {
		return
	}
	m.phaseFailures.WithLabelValues(gatewayID, phase).Inc()
}

func (m *fuotaMetrics) SetActiveTransfers(count int) {
	if m == nil {
		return
	}
	m.active.Set(float64(count))
}

func (m *fuotaMetrics) RecordPageTransferred(gatewayID string, bytes int) {
	if m == nil {
		return
	}
	m.pageBytes.WithLabelValues(gatewayID).Observe(float64(bytes))
}
