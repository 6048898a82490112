package metrics

import "time"

// PullMetrics provides observability for the periodic meter-profile pull
// scheduler.
type PullMetrics interface {
	// RecordCycle records one completed pull cycle for a gateway: the
	// profile kind pulled, whether it succeeded, and total duration.
	RecordCycle(gatewayID string, profile string, success bool, duration time.Duration)

	// RecordMissingCycle records a cycle-id gap detected for a gateway
	// (the gateway skipped reporting a cycle).
	RecordMissingCycle(gatewayID string)
}

// NewPullMetrics creates a new Prometheus-backed PullMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPullMetrics() PullMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusPullMetrics()
}

var newPrometheusPullMetrics func() PullMetrics

// RegisterPullMetricsConstructor registers the Prometheus implementation.
func RegisterPullMetricsConstructor(constructor func() PullMetrics) {
	newPrometheusPullMetrics = constructor
}
