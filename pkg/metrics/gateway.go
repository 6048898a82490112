package metrics

// GatewayMetrics provides observability for per-gateway TCP session
// lifecycle. Implementations are optional; pass nil to disable metrics
// collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled (after InitRegistry)
//	m := metrics.NewGatewayMetrics()
//
//	// Without metrics, NewGatewayMetrics returns nil
type GatewayMetrics interface {
	// RecordConnect records a new gateway TCP connection being accepted.
	RecordConnect(gatewayID string)

	// RecordDisconnect records a gateway session ending, along with the
	// reason (e.g. "eof", "idle_timeout", "duplicate_evicted", "shutdown").
	RecordDisconnect(gatewayID string, reason string)

	// SetActiveGateways sets the current count of connected gateways.
	SetActiveGateways(count int)

	// RecordFrameError records a malformed PMESH/DLMS frame received from
	// a gateway, keyed by the checksum/length/unknown-type failure kind.
	RecordFrameError(gatewayID string, kind string)
}

// NewGatewayMetrics creates a new Prometheus-backed GatewayMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewGatewayMetrics() GatewayMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusGatewayMetrics()
}

// newPrometheusGatewayMetrics is registered by pkg/metrics/prometheus/gateway.go.
// This indirection avoids an import cycle between the two packages.
var newPrometheusGatewayMetrics func() GatewayMetrics

// RegisterGatewayMetricsConstructor registers the Prometheus implementation.
// Called from pkg/metrics/prometheus's package init.
func RegisterGatewayMetricsConstructor(constructor func() GatewayMetrics) {
	newPrometheusGatewayMetrics = constructor
}
