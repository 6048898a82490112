package metrics

import "time"

// TransactorMetrics provides observability for the request transactor's
// retry ladder and terminal outcomes.
type TransactorMetrics interface {
	// RecordOutcome records a completed transaction: its DLMS command,
	// terminal outcome ("success", "timeout", "nak", "exhausted"), and
	// total duration from first attempt to resolution.
	RecordOutcome(command string, outcome string, duration time.Duration)

	// RecordRetry records one retry attempt. alternate is true once the
	// transactor has switched to the alternate path.
	RecordRetry(command string, alternate bool)
}

// NewTransactorMetrics creates a new Prometheus-backed TransactorMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTransactorMetrics() TransactorMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusTransactorMetrics()
}

var newPrometheusTransactorMetrics func() TransactorMetrics

// RegisterTransactorMetricsConstructor registers the Prometheus implementation.
func RegisterTransactorMetricsConstructor(constructor func() TransactorMetrics) {
	newPrometheusTransactorMetrics = constructor
}
