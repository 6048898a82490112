package prometheus

import (
	"github.com/rfmesh/hes/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type gatewayMetrics struct {
	connects     *prometheus.CounterVec
	disconnects  *prometheus.CounterVec
	active       prometheus.Gauge
	frameErrors  *prometheus.CounterVec
}

func init() {
	metrics.RegisterGatewayMetricsConstructor(newGatewayMetrics)
}

func newGatewayMetrics() metrics.GatewayMetrics {
	reg := metrics.GetRegistry()

	return &gatewayMetrics{
		connects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_gateway_connects_total",
				Help: "Total number of accepted gateway TCP connections",
			},
			[]string{"gateway_id"},
		),
		disconnects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_gateway_disconnects_total",
				Help: "Total number of gateway session terminations by reason",
			},
			[]string{"gateway_id", "reason"},
		),
		active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "hes_gateway_active_sessions",
				Help: "Current number of connected gateway sessions",
			},
		),
		frameErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hes_gateway_frame_errors_total",
				Help: "Total number of malformed PMESH/DLMS frames by kind",
			},
			[]string{"gateway_id", "kind"},
		),
	}
}

func (m *gatewayMetrics) RecordConnect(gatewayID string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(gatewayID).Inc()
}

func (m *gatewayMetrics) RecordDisconnect(gatewayID string, reason string) {
	if m == nil {
		return
	}
	m.disconnects.WithLabelValues(gatewayID, reason).Inc()
}

func (m *gatewayMetrics) SetActiveGateways(count int) {
	if m == nil {
		return
	}
	m.active.Set(float64(count))
}

func (m *gatewayMetrics) RecordFrameError(gatewayID string, kind string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(gatewayID, kind).Inc()
}
