package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds session-scoped logging context for a gateway task.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	GatewayID string    // 16-char gateway id
	NodeMAC   string    // 8-byte meter MAC, hex-encoded, when known
	Phase     string    // current transaction / FUOTA phase name
	ClientIP  string    // gateway socket remote address (without port)
	CycleID   int       // current pull cycle-id (1..96), 0 when not in a cycle
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly accepted gateway connection.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		GatewayID: lc.GatewayID,
		NodeMAC:   lc.NodeMAC,
		Phase:     lc.Phase,
		ClientIP:  lc.ClientIP,
		CycleID:   lc.CycleID,
		StartTime: lc.StartTime,
	}
}

// WithGateway returns a copy with the gateway id set
func (lc *LogContext) WithGateway(gatewayID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.GatewayID = gatewayID
	}
	return clone
}

// WithNode returns a copy with the target node MAC set
func (lc *LogContext) WithNode(mac string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.NodeMAC = mac
	}
	return clone
}

// WithPhase returns a copy with the current transaction/FUOTA phase set
func (lc *LogContext) WithPhase(phase string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Phase = phase
	}
	return clone
}

// WithCycle returns a copy with the current pull cycle-id set
func (lc *LogContext) WithCycle(cycleID int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.CycleID = cycleID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
