package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "hes", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, GatewayID("3CC1F601000000453CC1F601"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("GatewayID", func(t *testing.T) {
		attr := GatewayID("3CC1F601000000453CC1F601")
		assert.Equal(t, AttrGatewayID, string(attr.Key))
		assert.Equal(t, "3CC1F601000000453CC1F601", attr.Value.AsString())
	})

	t.Run("NodeMAC", func(t *testing.T) {
		attr := NodeMAC([]byte{0x01, 0x02, 0x03, 0x04})
		assert.Equal(t, AttrNodeMAC, string(attr.Key))
		assert.Equal(t, "01020304", attr.Value.AsString())
	})

	t.Run("HopCount", func(t *testing.T) {
		attr := HopCount(3)
		assert.Equal(t, AttrHopCount, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("PacketType", func(t *testing.T) {
		attr := PacketType(0x05)
		assert.Equal(t, AttrPacketType, string(attr.Key))
		assert.Equal(t, int64(5), attr.Value.AsInt64())
	})

	t.Run("FrameID", func(t *testing.T) {
		attr := FrameID(0x01)
		assert.Equal(t, AttrFrameID, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("PageIndex", func(t *testing.T) {
		attr := PageIndex(7)
		assert.Equal(t, AttrPageIndex, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("RetryCount", func(t *testing.T) {
		attr := RetryCount(2)
		assert.Equal(t, AttrRetryCount, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("AltRetryCount", func(t *testing.T) {
		attr := AltRetryCount(1)
		assert.Equal(t, AttrAltRetry, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("Outcome", func(t *testing.T) {
		attr := Outcome("success")
		assert.Equal(t, AttrOutcome, string(attr.Key))
		assert.Equal(t, "success", attr.Value.AsString())
	})

	t.Run("RequestID", func(t *testing.T) {
		attr := RequestID("req-123")
		assert.Equal(t, AttrRequestID, string(attr.Key))
		assert.Equal(t, "req-123", attr.Value.AsString())
	})

	t.Run("Profile", func(t *testing.T) {
		attr := Profile("DLP")
		assert.Equal(t, AttrProfile, string(attr.Key))
		assert.Equal(t, "DLP", attr.Value.AsString())
	})

	t.Run("CycleID", func(t *testing.T) {
		attr := CycleID(42)
		assert.Equal(t, AttrCycleID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("FuotaPhase", func(t *testing.T) {
		attr := FuotaPhase("ImageTransfer")
		assert.Equal(t, AttrFuotaPhase, string(attr.Key))
		assert.Equal(t, "ImageTransfer", attr.Value.AsString())
	})

	t.Run("FuotaPage", func(t *testing.T) {
		attr := FuotaPage(4)
		assert.Equal(t, AttrFuotaPage, string(attr.Key))
		assert.Equal(t, int64(4), attr.Value.AsInt64())
	})

	t.Run("FuotaSubpage", func(t *testing.T) {
		attr := FuotaSubpage(2)
		assert.Equal(t, AttrFuotaSub, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("FuotaCRC", func(t *testing.T) {
		attr := FuotaCRC(0xA001)
		assert.Equal(t, AttrFuotaCRC, string(attr.Key))
		assert.Equal(t, int64(0xA001), attr.Value.AsInt64())
	})

	t.Run("ErrorKind", func(t *testing.T) {
		attr := ErrorKind("MeshProtocol")
		assert.Equal(t, AttrErrorKind, string(attr.Key))
		assert.Equal(t, "MeshProtocol", attr.Value.AsString())
	})
}

func TestStartSessionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSessionSpan(ctx, "3CC1F601000000453CC1F601")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartSessionSpan(ctx, "3CC1F601000000453CC1F601", HopCount(2))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartTransactionSpan(t *testing.T) {
	ctx := context.Background()

	mac := []byte{0x01, 0x02, 0x03, 0x04}

	newCtx, span := StartTransactionSpan(ctx, mac)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartTransactionSpan(ctx, mac, RetryCount(1), AltRetryCount(0))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartFuotaPhaseSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartFuotaPhaseSpan(ctx, "OpenFile")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartFuotaPhaseSpan(ctx, "ImageTransfer", FuotaPage(3), FuotaSubpage(1))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartPullCycleSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPullCycleSpan(ctx, "3CC1F601000000453CC1F601", 12)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartPullCycleSpan(ctx, "3CC1F601000000453CC1F601", 12, Profile("DLP"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "read")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartStoreSpan(ctx, "write", GatewayID("3CC1F601000000453CC1F601"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
