// Package transactor sends a framed DLMS-over-PMESH command to a node and
// drives it to a correlated terminal response under the engine's retry
// ladder: same-route resend on mesh timeout, brief wait on command-in-
// progress, a DLMS-enable side-sequence on connection failure, checksum
// recompute-and-resend, and alternate-route rotation once the primary
// route has failed three times in a row.
package transactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/codec/pmesh"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/protoerr"
)

// State is the transactor's terminal or in-flight outcome for one
// transaction.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateSuccess
	StateNextPage
	StateRetryTimeout
	StateCommandInProgress
	StateDlmsConnectionFailed
	StateDlmsChecksumError
	StateDlmsError
	StateInvalidResponse
	StatePmeshError
	StatePollTimeout
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateSuccess:
		return "Success"
	case StateNextPage:
		return "NextPage"
	case StateRetryTimeout:
		return "RetryTimeout"
	case StateCommandInProgress:
		return "CommandInProgress"
	case StateDlmsConnectionFailed:
		return "DlmsConnectionFailed"
	case StateDlmsChecksumError:
		return "DlmsChecksumError"
	case StateDlmsError:
		return "DlmsError"
	case StateInvalidResponse:
		return "InvalidResponse"
	case StatePmeshError:
		return "PmeshError"
	case StatePollTimeout:
		return "PollTimeout"
	case StateCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

const (
	maxRetryCount          = 3
	maxAlternateRetryCount = 2
	maxDlmsEnableAttempts  = 3
	maxChecksumAttempts    = 3
)

// commandInProgressWait is how long Execute pauses before resending after
// a command-in-progress mesh status.
const commandInProgressWait = time.Second

// dlmsEnableFrame is the 8-byte DLMS-association request the engine sends
// when a node reports it has no live DLMS connection.
var dlmsEnableFrame = []byte{0x2B, 0x07, 0x00, 0x00, 0x00, 0x02, 0x01, 0x35}

// Transport sends one PMESH frame and waits for the next inbound frame on
// a gateway session. Recv returns an error on timeout or disconnect, and the
// transactor treats any Recv error as a failed attempt; it never blocks
// past ctx's deadline.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Recv(ctx context.Context) ([]byte, error)
}

// PageInspector tells the transactor whether a decoded DLMS response frame
// carries a next-page bit, and how to rewrite the original request into
// the profile's "fetch next page" form. Profile parsers implement this
// per profile kind (§4.4); a nil Inspector marks a request that never
// pages (on-demand single reads, FUOTA control frames).
type PageInspector interface {
	HasNextPage(frame *dlms.Frame) bool
	NextPageRequest(original []byte) []byte
}

// Request describes one logical command addressed to a node over its
// primary route, with alternates ranked for rotation on repeated failure.
type Request struct {
	PacketType byte
	PanID      [4]byte
	SourceAddr [4]byte

	Primary    pathbook.PathInfo
	Alternates []pathbook.PathInfo

	DlmsFrameID    byte
	DlmsCommand    byte
	DlmsSubCommand byte
	DlmsPayload    []byte

	// IsPingNode marks a ping-node data-type request: a Recv timeout is
	// terminal immediately, bypassing the retry ladder entirely.
	IsPingNode bool

	Inspector PageInspector
}

// Result is the terminal outcome of one Execute call. Pages holds each
// page's raw DLMS response frame (the PMESH payload, still to be passed to
// dlms.Parse), in request order, for the profile parser to walk.
type Result struct {
	State         State
	DlmsErrorCode uint16
	MeshCode      byte
	Pages         [][]byte
}

// Transactor drives one Request at a time over a Transport.
type Transactor struct {
	transport Transport
	logger    *slog.Logger
}

func New(transport Transport, logger *slog.Logger) *Transactor {
	return &Transactor{transport: transport, logger: logger}
}

// ladder tracks retry/rotation progress across one Execute call.
type ladder struct {
	retryCount    int
	altIndex      int // -1 while on the primary route
	altRetryCount int
}

func newLadder() *ladder { return &ladder{altIndex: -1} }

// currentPath returns the route the ladder is presently attempting.
func (l *ladder) currentPath(req Request) pathbook.PathInfo {
	if l.altIndex == -1 {
		return req.Primary
	}
	return req.Alternates[l.altIndex]
}

// advance applies the "three same-route failures -> next alternate, each
// alternate retried up to twice" rule. ok is false once every route is
// exhausted.
func (l *ladder) advance(req Request) (ok bool) {
	if l.altIndex == -1 {
		l.retryCount++
		if l.retryCount < maxRetryCount {
			return true
		}
		if len(req.Alternates) == 0 {
			return false
		}
		l.altIndex = 0
		l.altRetryCount = 0
		return true
	}

	if l.altRetryCount < maxAlternateRetryCount {
		l.altRetryCount++
		return true
	}
	l.altIndex++
	if l.altIndex >= len(req.Alternates) {
		return false
	}
	l.altRetryCount = 0
	return true
}

// Execute runs req to a terminal state, sending and resending frames per
// the retry ladder until Success, a terminal failure state, or ctx is
// cancelled.
func (t *Transactor) Execute(ctx context.Context, req Request) (Result, error) {
	lad := newLadder()
	pageIndex := byte(0)
	payload := req.DlmsPayload
	var pages [][]byte
	checksumAttempts := 0
	enableAttempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return Result{State: StateCancelled}, err
		}

		path := lad.currentPath(req)
		dlmsFrame := dlms.Build(pageIndex, req.DlmsFrameID, req.DlmsCommand, req.DlmsSubCommand, payload)
		outer, err := pmesh.Build(req.PacketType, req.PanID, req.SourceAddr, path.HopCount, flattenHops(path), dlmsFrame, true)
		if err != nil {
			return Result{State: StateInvalidResponse}, fmt.Errorf("transactor: build request frame: %w", err)
		}

		if err := t.transport.Send(ctx, outer); err != nil {
			return Result{State: StateRetryTimeout}, fmt.Errorf("transactor: send: %w", err)
		}

		raw, err := t.transport.Recv(ctx)
		if err != nil {
			if req.IsPingNode {
				return Result{State: StatePollTimeout}, err
			}
			if !lad.advance(req) {
				return Result{State: StateRetryTimeout}, fmt.Errorf("transactor: retry ladder exhausted: %w", err)
			}
			continue
		}

		meshFrame, err := pmesh.Parse(raw, true)
		if err != nil {
			return Result{State: StateInvalidResponse}, fmt.Errorf("transactor: parse mesh frame: %w", err)
		}

		if code, isMeshStatus := meshStatusCode(meshFrame.Payload); isMeshStatus {
			switch code {
			case protoerr.MeshCodeRetryTimeout:
				if !lad.advance(req) {
					return Result{State: StateRetryTimeout, MeshCode: code}, &protoerr.MeshProtocolError{Code: code}
				}
				continue
			case protoerr.MeshCodeCommandInProgress:
				// brief wait-and-resend; does not advance retry-count
				select {
				case <-ctx.Done():
					return Result{State: StateCancelled}, ctx.Err()
				case <-time.After(commandInProgressWait):
				}
				continue
			case protoerr.MeshCodeNMSDisabled:
				// spec.md §7: 0x08 aborts, it is not part of the retry ladder.
				return Result{State: StatePmeshError, MeshCode: code}, &protoerr.MeshProtocolError{Code: code}
			case protoerr.MeshCodeChecksumError:
				if checksumAttempts >= maxChecksumAttempts {
					return Result{State: StateDlmsChecksumError, MeshCode: code}, &protoerr.MeshProtocolError{Code: code}
				}
				checksumAttempts++
				// dlms.Build always re-sums on the next iteration, so the
				// resend carries a freshly computed checksum without a
				// separate recompute step here.
				continue
			case protoerr.MeshCodeDlmsConnectionFailed:
				if enableAttempts >= maxDlmsEnableAttempts {
					return Result{State: StateDlmsConnectionFailed, MeshCode: code}, &protoerr.MeshProtocolError{Code: code}
				}
				enableAttempts++
				if err := t.sendDlmsEnable(ctx, req, path); err != nil {
					return Result{State: StateDlmsConnectionFailed}, err
				}
				continue
			default:
				return Result{State: StatePmeshError, MeshCode: code}, &protoerr.MeshProtocolError{Code: code}
			}
		}

		if !correlatesSource(meshFrame, path) {
			return Result{State: StateInvalidResponse}, errors.New("transactor: response source-address does not match destination path")
		}

		dlmsResp, err := dlms.Parse(meshFrame.Payload, dlms.Response)
		if err != nil {
			return Result{State: StateInvalidResponse}, fmt.Errorf("transactor: parse dlms frame: %w", err)
		}
		if dlmsResp.PageIndex != pageIndex {
			return Result{State: StateInvalidResponse}, fmt.Errorf("transactor: page-index mismatch: want %d got %d", pageIndex, dlmsResp.PageIndex)
		}

		pages = append(pages, meshFrame.Payload)

		if code := dlmsErrorCode(dlmsResp); code != 0 {
			// Recorded as Success with a distinct ErrorCode, per the
			// engine's DLMS_ERROR convention — not a failure state.
			return Result{State: StateSuccess, DlmsErrorCode: code, Pages: pages}, nil
		}

		if req.IsPingNode {
			return Result{State: StateSuccess, Pages: pages}, nil
		}

		if req.Inspector != nil && req.Inspector.HasNextPage(dlmsResp) {
			pageIndex++
			payload = req.Inspector.NextPageRequest(payload)
			continue
		}

		return Result{State: StateSuccess, Pages: pages}, nil
	}
}

// sendDlmsEnable sends the fixed 8-byte DLMS-association request over
// path and waits for any response, swallowing mesh-status replies — the
// caller resumes the outer request regardless of the enable sequence's own
// correlation once it gets any reply back.
func (t *Transactor) sendDlmsEnable(ctx context.Context, req Request, path pathbook.PathInfo) error {
	outer, err := pmesh.Build(req.PacketType, req.PanID, req.SourceAddr, path.HopCount, flattenHops(path), dlmsEnableFrame, true)
	if err != nil {
		return fmt.Errorf("transactor: build dlms-enable frame: %w", err)
	}
	if err := t.transport.Send(ctx, outer); err != nil {
		return fmt.Errorf("transactor: send dlms-enable: %w", err)
	}
	if _, err := t.transport.Recv(ctx); err != nil {
		return fmt.Errorf("transactor: recv dlms-enable response: %w", err)
	}
	return nil
}

// flattenHops concatenates a route's hop groups into the wire hop-path
// byte slice pmesh.Build expects.
func flattenHops(path pathbook.PathInfo) []byte {
	out := make([]byte, 0, len(path.Hops)*4)
	for _, hop := range path.Hops {
		out = append(out, hop[:]...)
	}
	return out
}

// correlatesSource checks that the last 4 bytes of the destination path
// the engine sent to equal the responding frame's source address.
func correlatesSource(frame *pmesh.Frame, path pathbook.PathInfo) bool {
	if len(path.Hops) == 0 {
		return false
	}
	return path.Hops[len(path.Hops)-1] == frame.SourceAddr
}

// meshStatusCode recognises a one-byte mesh-layer status reply (as
// opposed to a full DLMS response frame, which is always longer). A DLMS
// frame's minimum length is 7 bytes even with an empty payload, so any
// single-byte PMESH payload is unambiguously a mesh status code.
func meshStatusCode(payload []byte) (byte, bool) {
	if len(payload) != 1 {
		return 0, false
	}
	return payload[0], true
}

// dlmsErrorCode extracts a non-zero DLMS error word from a parsed
// response, when the command/sub-command identifies it as an error
// reply. Error responses carry a single uint16 record at data-index 0.
func dlmsErrorCode(frame *dlms.Frame) uint16 {
	if frame.Command != dlmsErrorCommand {
		return 0
	}
	for _, rec := range frame.Records {
		if rec.DataIndex == 0 {
			return rec.Value.Uint16()
		}
	}
	return 0
}

// dlmsErrorCommand is the command byte the meter uses to signal a DLMS
// error response in place of the requested data.
const dlmsErrorCommand = 0xFF
