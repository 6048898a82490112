// Package protoerr provides the typed error hierarchy shared by the
// transactor and FUOTA packages. This is a leaf package with no
// internal dependencies, so it can be imported anywhere in the engine
// without causing import cycles.
//
// Import graph: protoerr <- transactor, fuota
package protoerr

import "fmt"

// WireErrorKind enumerates the ways a raw byte buffer can fail to decode as
// a PMESH or DLMS frame.
type WireErrorKind int

const (
	WireBadStart WireErrorKind = iota
	WireLengthMismatch
	WireBadChecksum
	WireTooShort
)

func (k WireErrorKind) String() string {
	switch k {
	case WireBadStart:
		return "BadStart"
	case WireLengthMismatch:
		return "LengthMismatch"
	case WireBadChecksum:
		return "BadChecksum"
	case WireTooShort:
		return "TooShort"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// WireError is returned when a frame fails to parse at the byte level.
type WireError struct {
	Sub WireErrorKind
}

func (e *WireError) Error() string { return fmt.Sprintf("wire: %s", e.Sub) }

// TransportErrorKind enumerates socket/transport-level failures distinct
// from malformed frames.
type TransportErrorKind int

const (
	TransportTimeout TransportErrorKind = iota
	TransportDisconnect
	TransportSendFailed
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportTimeout:
		return "Timeout"
	case TransportDisconnect:
		return "Disconnect"
	case TransportSendFailed:
		return "SendFailed"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// TransportError is returned when the underlying connection fails
// independently of frame content.
type TransportError struct {
	Kind TransportErrorKind
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s", e.Kind) }

// MeshProtocolError wraps a mesh-layer response code (retry-timeout,
// command-in-progress, and the other single-byte mesh failure codes).
type MeshProtocolError struct {
	Code byte
}

func (e *MeshProtocolError) Error() string {
	return fmt.Sprintf("mesh protocol error: code 0x%02X", e.Code)
}

// Well-known mesh protocol codes referenced by the transactor's retry
// ladder.
const (
	MeshCodeRetryTimeout      byte = 0x06
	MeshCodeCommandInProgress byte = 0x07

	// MeshCodeNMSDisabled is spec.md §7's reserved pmesh code 0x08 ("NMS
	// disabled"): unlike the other codes in the 0..0x0C range, this one
	// aborts the transaction rather than driving a retry.
	MeshCodeNMSDisabled byte = 0x08

	MeshCodeChecksumError byte = 0x29

	// MeshCodeDlmsConnectionFailed is the engine's own code for "meter
	// accepted the mesh frame but has no live DLMS association" — the spec
	// names this transactor state without assigning it a wire byte. 0x08
	// is spec-reserved for NMSDisabled, so the engine uses 0x0A, the next
	// free slot in the 0..0x0C pmesh code range.
	MeshCodeDlmsConnectionFailed byte = 0x0A
)

// DlmsError wraps a non-zero DLMS error word returned by the meter. Per the
// engine's recording convention this is NOT necessarily a failed request —
// see store.models.DlmsOnDemandRequest.ErrorCode.
type DlmsError struct {
	Code uint16
}

func (e *DlmsError) Error() string { return fmt.Sprintf("dlms error: code 0x%04X", e.Code) }

// FirmwareIOErrorKind enumerates the ways the FUOTA engine's firmware file
// handling can fail.
type FirmwareIOErrorKind int

const (
	FirmwareNotFound FirmwareIOErrorKind = iota
	FirmwareRead
	FirmwareWrite
	FirmwareOpen
	FirmwareSizeMismatch
)

func (k FirmwareIOErrorKind) String() string {
	switch k {
	case FirmwareNotFound:
		return "NotFound"
	case FirmwareRead:
		return "Read"
	case FirmwareWrite:
		return "Write"
	case FirmwareOpen:
		return "Open"
	case FirmwareSizeMismatch:
		return "SizeMismatch"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// FirmwareIOError is returned by the FUOTA engine's firmware filesystem
// operations (backed by afero).
type FirmwareIOError struct {
	Kind FirmwareIOErrorKind
}

func (e *FirmwareIOError) Error() string { return fmt.Sprintf("firmware io: %s", e.Kind) }
