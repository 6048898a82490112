package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for gateway/meter operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Gateway attributes
	// ========================================================================
	AttrGatewayID   = "gateway.id"
	AttrGatewayAddr = "gateway.client_addr"
	AttrPanID       = "gateway.pan_id"

	// ========================================================================
	// Node / meter attributes
	// ========================================================================
	AttrNodeMAC   = "node.mac"
	AttrHopCount  = "node.hop_count"
	AttrRouteKind = "node.route_kind" // primary | alternate

	// ========================================================================
	// Protocol attributes (PMESH / DLMS framing)
	// ========================================================================
	AttrPacketType  = "pmesh.packet_type"
	AttrFrameID     = "dlms.frame_id"
	AttrCommand     = "dlms.command"
	AttrSubCommand  = "dlms.sub_command"
	AttrPageIndex   = "dlms.page_index"

	// ========================================================================
	// Transactor attributes
	// ========================================================================
	AttrRetryCount = "transactor.retry_count"
	AttrAltRetry   = "transactor.alt_retry_count"
	AttrOutcome    = "transactor.outcome"
	AttrRequestID  = "transactor.request_id"

	// ========================================================================
	// Profile / pull cycle attributes
	// ========================================================================
	AttrProfile = "profile.kind"
	AttrCycleID = "pull.cycle_id"

	// ========================================================================
	// FUOTA attributes
	// ========================================================================
	AttrFuotaPhase = "fuota.phase"
	AttrFuotaPage  = "fuota.page"
	AttrFuotaSub   = "fuota.subpage"
	AttrFuotaCRC   = "fuota.crc16"

	// ========================================================================
	// Error attributes
	// ========================================================================
	AttrErrorKind = "error.kind"
	AttrErrorCode = "error.code"
)

// Span names for operations.
const (
	// Root span for a gateway session's lifetime.
	SpanGatewaySession = "gateway.session"

	// Pull-cycle spans.
	SpanPullCycle   = "pull.cycle"
	SpanPullProfile = "pull.profile"

	// Transaction spans (Request Transactor).
	SpanTransaction = "transactor.transaction"

	// FUOTA phase spans, one per §4.6 state.
	SpanFuotaOpenFile             = "fuota.OpenFile"
	SpanFuotaGatewayPathSilence   = "fuota.GatewayPathSilence"
	SpanFuotaTargetNodeSilence    = "fuota.TargetNodeSilence"
	SpanFuotaNetworkSilence       = "fuota.NetworkSilence"
	SpanFuotaSectorRead           = "fuota.SectorRead"
	SpanFuotaFirmwareSectorCount  = "fuota.FirmwareSectorCount"
	SpanFuotaEraseFlash           = "fuota.EraseFlash"
	SpanFuotaImageTransfer        = "fuota.ImageTransfer"
	SpanFuotaEndOfPage            = "fuota.EndOfPage"
	SpanFuotaCrcCompute           = "fuota.CrcCompute"
	SpanFuotaActivate             = "fuota.Activate"
	SpanFuotaReadCompareFirmware  = "fuota.ReadCompareFirmwareVersion"
	SpanFuotaNetworkUnsilence     = "fuota.NetworkUnsilence"
	SpanFuotaTargetNodeUnsilence  = "fuota.TargetNodeUnsilence"
	SpanFuotaGatewayPathUnsilence = "fuota.GatewayPathUnsilence"
	SpanFuotaRollback             = "fuota.RollbackToNormal"

	// Store operations.
	SpanStoreRead  = "store.read"
	SpanStoreWrite = "store.write"
)

// GatewayID returns an attribute for the gateway identifier.
func GatewayID(id string) attribute.KeyValue {
	return attribute.String(AttrGatewayID, id)
}

// NodeMAC returns an attribute for a meter MAC address, hex-encoded.
func NodeMAC(mac []byte) attribute.KeyValue {
	return attribute.String(AttrNodeMAC, fmt.Sprintf("%x", mac))
}

// HopCount returns an attribute for the active route's hop count.
func HopCount(hops int) attribute.KeyValue {
	return attribute.Int(AttrHopCount, hops)
}

// PacketType returns an attribute for the PMESH packet type byte.
func PacketType(t byte) attribute.KeyValue {
	return attribute.Int(AttrPacketType, int(t))
}

// FrameID returns an attribute for the DLMS frame id byte.
func FrameID(id byte) attribute.KeyValue {
	return attribute.Int(AttrFrameID, int(id))
}

// PageIndex returns an attribute for the current DLMS page index.
func PageIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrPageIndex, idx)
}

// RetryCount returns an attribute for the transactor's primary-route retry count.
func RetryCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRetryCount, n)
}

// AltRetryCount returns an attribute for the transactor's alternate-route retry count.
func AltRetryCount(n int) attribute.KeyValue {
	return attribute.Int(AttrAltRetry, n)
}

// Outcome returns an attribute for the transactor's terminal outcome name.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// RequestID returns an attribute for the MQTT-assigned request id.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// Profile returns an attribute for the profile kind being pulled.
func Profile(kind string) attribute.KeyValue {
	return attribute.String(AttrProfile, kind)
}

// CycleID returns an attribute for the current quarter-hour cycle id.
func CycleID(id int) attribute.KeyValue {
	return attribute.Int(AttrCycleID, id)
}

// FuotaPhase returns an attribute for the current FUOTA FSM state name.
func FuotaPhase(phase string) attribute.KeyValue {
	return attribute.String(AttrFuotaPhase, phase)
}

// FuotaPage returns an attribute for the current firmware page index.
func FuotaPage(page int) attribute.KeyValue {
	return attribute.Int(AttrFuotaPage, page)
}

// FuotaSubpage returns an attribute for the current firmware subpage index.
func FuotaSubpage(sub int) attribute.KeyValue {
	return attribute.Int(AttrFuotaSub, sub)
}

// FuotaCRC returns an attribute for the computed firmware CRC-16.
func FuotaCRC(crc uint16) attribute.KeyValue {
	return attribute.Int(AttrFuotaCRC, int(crc))
}

// ErrorKind returns an attribute for the typed error kind (WireFormat, Transport, ...).
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// StartSessionSpan starts the root span for a gateway session.
func StartSessionSpan(ctx context.Context, gatewayID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{GatewayID(gatewayID)}, attrs...)
	return StartSpan(ctx, SpanGatewaySession, trace.WithAttributes(allAttrs...))
}

// StartTransactionSpan starts a span for one request-transactor transaction.
func StartTransactionSpan(ctx context.Context, mac []byte, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{NodeMAC(mac)}, attrs...)
	return StartSpan(ctx, SpanTransaction, trace.WithAttributes(allAttrs...))
}

// StartFuotaPhaseSpan starts a span named after a FUOTA FSM state.
func StartFuotaPhaseSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{FuotaPhase(phase)}, attrs...)
	return StartSpan(ctx, "fuota."+phase, trace.WithAttributes(allAttrs...))
}

// StartPullCycleSpan starts a span for one gateway's pull cycle.
func StartPullCycleSpan(ctx context.Context, gatewayID string, cycleID int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{GatewayID(gatewayID), CycleID(cycleID)}, attrs...)
	return StartSpan(ctx, SpanPullCycle, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a store read/write operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation, trace.WithAttributes(attrs...))
}
