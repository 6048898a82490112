package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Gateway / session identification
	// ========================================================================
	KeyGatewayID   = "gateway_id"   // 16-char gateway identifier
	KeyClientIP    = "client_ip"    // gateway socket remote address
	KeyPanID       = "pan_id"       // 4-byte PAN id, hex
	KeyGatewayAddr = "gateway_addr" // 4-byte gateway short address, hex

	// ========================================================================
	// Node / meter identification
	// ========================================================================
	KeyNodeMAC  = "node_mac"  // 8-byte meter MAC, hex
	KeyHopCount = "hop_count" // number of intermediate hops on the active route
	KeyRoute    = "route"     // ordinal of the path used (0 = primary, 1.. = alternate)

	// ========================================================================
	// Protocol / framing
	// ========================================================================
	KeyPacketType = "packet_type" // PMESH packet type byte
	KeyFrameID    = "frame_id"    // DLMS frame id
	KeyCommand    = "command"     // DLMS command byte
	KeySubCommand = "sub_command" // DLMS sub-command byte
	KeyPageIndex  = "page_index"  // DLMS page index
	KeyChecksum   = "checksum"    // computed or expected checksum byte

	// ========================================================================
	// Transactor / retry ladder
	// ========================================================================
	KeyRetryCount  = "retry_count"   // primary-route retry attempt
	KeyAltRetry    = "alt_retry"     // alternate-route retry attempt
	KeyOutcome     = "outcome"       // terminal transactor outcome
	KeyRequestID   = "request_id"    // MQTT-assigned request id
	KeyDownload    = "download_type" // ODM download-type enum value

	// ========================================================================
	// Profiles / pull cycle
	// ========================================================================
	KeyProfile  = "profile"  // profile kind: NP, IP, DLP, BLP, BHP, Events, Scalar
	KeyCycleID  = "cycle_id" // quarter-hour cycle id, 1..96

	// ========================================================================
	// FUOTA
	// ========================================================================
	KeyFuotaPhase = "fuota_phase" // current FUOTA FSM state name
	KeyPage       = "page"        // firmware page index
	KeySubpage    = "subpage"     // firmware subpage index
	KeyCRC        = "crc"         // computed CRC-16 of the firmware image

	// ========================================================================
	// Error classification
	// ========================================================================
	KeyErrorKind = "error_kind" // WireFormat, Transport, MeshProtocol, DlmsError, FirmwareIO
	KeyErrorCode = "error_code" // numeric sub-code carried by the error
	KeyError     = "error"      // error message text
)

// Err formats an error for structured logging with a standard key. A nil
// error yields an empty attribute, which slog handlers omit.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Hex formats a byte slice as a lowercase hex string attr, used for
// MAC addresses, PAN ids and gateway addresses in log output.
func Hex(key string, b []byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("%x", b))
}
