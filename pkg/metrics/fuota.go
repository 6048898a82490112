package metrics

// FuotaMetrics provides observability for firmware-update file-transfer
// sessions.
type FuotaMetrics interface {
	// RecordPhaseEnter records entry into one of the sixteen FUOTA FSM
	// phases for a given gateway.
	RecordPhaseEnter(gatewayID string, phase string)

	// RecordPhaseFailure records a phase that failed and triggered rollback.
	RecordPhaseFailure(gatewayID string, phase string)

	// SetActiveTransfers sets the current count of in-flight FUOTA sessions.
	SetActiveTransfers(count int)

	// RecordPageTransferred records one firmware page successfully
	// transferred, along with its byte size.
	RecordPageTransferred(gatewayID string, bytes int)
}

// NewFuotaMetrics creates a new Prometheus-backed FuotaMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFuotaMetrics() FuotaMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusFuotaMetrics()
}

var newPrometheusFuotaMetrics func() FuotaMetrics

// RegisterFuotaMetricsConstructor registers the Prometheus implementation.
func RegisterFuotaMetricsConstructor(constructor func() FuotaMetrics) {
	newPrometheusFuotaMetrics = constructor
}
