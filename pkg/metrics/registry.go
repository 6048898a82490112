package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enabled  atomic.Bool
	registry *prometheus.Registry
	regOnce  sync.Once
)

// InitRegistry enables metrics collection and installs the registry that
// prometheus-backed constructors (pkg/metrics/prometheus) register their
// collectors against. Safe to call more than once; only the first call
// takes effect.
func InitRegistry() *prometheus.Registry {
	regOnce.Do(func() {
		registry = prometheus.NewRegistry()
		enabled.Store(true)
	})
	return registry
}

// IsEnabled reports whether InitRegistry has been called. Constructors in
// this package return nil when disabled, so callers get zero overhead
// without branching on IsEnabled themselves.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the process-wide registry. Only meaningful after
// InitRegistry has been called.
func GetRegistry() *prometheus.Registry {
	return registry
}
