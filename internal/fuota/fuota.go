// Package fuota drives the §4.6 firmware-rollout state machine: silencing
// the mesh around a target node, transferring a firmware image page by
// page with CRC, activating it, and un-silencing — with resume and
// alternate-route behaviour riding on the same transactor ladder every
// other pull uses.
package fuota

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/rfmesh/hes/internal/codec/pmesh"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
)

// Phase names the FUOTA state machine's sixteen linear states; persisted
// verbatim in DlmsFuotaUpload.Phase so a session can resume mid-rollout.
type Phase string

const (
	PhaseOpenFile                   Phase = "OpenFile"
	PhaseGatewayPathSilence         Phase = "GatewayPathSilence"
	PhaseTargetNodeSilence          Phase = "TargetNodeSilence"
	PhaseNetworkSilence             Phase = "NetworkSilence"
	PhaseSectorRead                 Phase = "SectorRead"
	PhaseFirmwareSectorCount        Phase = "FirmwareSectorCount"
	PhaseEraseFlash                 Phase = "EraseFlash"
	PhaseImageTransfer              Phase = "ImageTransfer"
	PhaseEndOfPage                  Phase = "EndOfPage"
	PhaseCrcCompute                 Phase = "CrcCompute"
	PhaseActivate                   Phase = "Activate"
	PhaseReadCompareFirmwareVersion Phase = "ReadCompareFirmwareVersion"
	PhaseNetworkUnsilence           Phase = "NetworkUnsilence"
	PhaseTargetNodeUnsilence        Phase = "TargetNodeUnsilence"
	PhaseGatewayPathUnsilence       Phase = "GatewayPathUnsilence"
	PhaseRollbackToNormal           Phase = "RollbackToNormal"
)

// Status values persisted on DlmsFuotaUpload.Status: 1 is
// terminal success, 0 is terminal rollback failure, 2 is in-progress.
const (
	StatusFailed     = 0
	StatusSuccess    = 1
	StatusInProgress = 2
)

// postFlashDelay is the wait the engine observes after every flash-touching
// command (flash-save, flash-exit, erase, activate) before the next send.
const postFlashDelay = 30 * time.Second

// Four silence/unsilence sub-commands, sent in sequence to the gateway
// node, the target node, and every network leaf. The wire format names
// these only by role (§4.6 step 2); the engine assigns them sub-command
// bytes 0x01..0x04 under a dedicated FUOTA control command — see
// DESIGN.md.
const (
	fuotaControlFrameID byte = 0x09
	cmdSilence          byte = 0x01
	cmdUnsilence        byte = 0x02

	subFuotaEnable    byte = 0x01
	subFuotaModeEntry byte = 0x02
	subFlashSave      byte = 0x03
	subFlashExit      byte = 0x04
)

// Session is one rollout's runtime state: the persisted row plus the
// routing and image bookkeeping needed to drive the phases.
type Session struct {
	Upload *models.DlmsFuotaUpload

	Phase Phase

	Book       *pathbook.Book
	Primary    pathbook.PathInfo
	Alternates []pathbook.PathInfo

	Leaves []string

	SectorSize   uint16
	MaxPayload   int
	MinPayload   int
	ImageSize    int64
	PageCount    int
	SubpageCount int

	CurrentPage    int
	CurrentSubpage int

	CRC16 *uint16

	FirmwareVersion string
}

func (s *Session) imagePath() string {
	return filepath.Join(s.Upload.FirmwarePath, s.Upload.FirmwareFilename)
}

func (s *Session) targetMAC() string { return s.Upload.TargetMAC }

// Engine drives Sessions to terminal outcomes for one gateway.
type Engine struct {
	transactor *transactor.Transactor
	store      store.Store
	fs         afero.Fs
	gatewayID  string
	panID      [4]byte
	sourceAddr [4]byte
	logger     *slog.Logger

	sleep func(time.Duration)
}

func New(tx *transactor.Transactor, st store.Store, fs afero.Fs, gatewayID string, panID, sourceAddr [4]byte, logger *slog.Logger) *Engine {
	return &Engine{
		transactor: tx,
		store:      st,
		fs:         fs,
		gatewayID:  gatewayID,
		panID:      panID,
		sourceAddr: sourceAddr,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Resume looks for a FUOTA record scheduled within the last 30 minutes for
// the engine's gateway and, if found, rebuilds a Session positioned to
// resume at OpenFile (§4.6 "Resume semantics").
func (e *Engine) Resume(ctx context.Context) (*Session, error) {
	const resumeWindow = 30 * time.Minute
	row, err := e.store.FindResumableFuotaUpload(ctx, e.gatewayID, resumeWindow)
	if err != nil {
		return nil, fmt.Errorf("fuota: find resumable upload: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	// Always jumps to OpenFile (§4.6), never row.Phase: CurrentPage,
	// SubpageCount and the rest of the image-transfer bookkeeping are not
	// persisted, so restarting at or after PhaseImageTransfer would run
	// image_transfer.go's transfer loop with a zero page count and fall
	// straight through to PhaseEndOfPage having sent nothing.
	ses := &Session{Upload: row, Phase: PhaseOpenFile, CRC16: row.CRC16}
	return ses, nil
}

// Enqueue creates a new rollout row and a fresh Session starting at
// OpenFile.
func (e *Engine) Enqueue(ctx context.Context, targetMAC, firmwarePath, firmwareFilename string) (*Session, error) {
	row := &models.DlmsFuotaUpload{
		ID:               uuid.NewString(),
		GatewayID:        e.gatewayID,
		TargetMAC:        targetMAC,
		FirmwarePath:     firmwarePath,
		FirmwareFilename: firmwareFilename,
		Phase:            string(PhaseOpenFile),
		Status:           StatusInProgress,
	}
	if err := e.store.CreateFuotaUpload(ctx, row); err != nil {
		return nil, fmt.Errorf("fuota: create upload row: %w", err)
	}
	return &Session{Upload: row, Phase: PhaseOpenFile}, nil
}

// Run drives ses through every phase to a terminal outcome (success,
// rollback, or ctx cancellation), loading routing information from book.
func (e *Engine) Run(ctx context.Context, ses *Session, book *pathbook.Book) error {
	ses.Book = book
	primary, ok := book.Primary(ses.targetMAC())
	if !ok {
		return e.fail(ctx, ses, fmt.Errorf("fuota: no primary route for target %s", ses.targetMAC()))
	}
	ses.Primary = primary
	ses.Alternates = book.Alternates(ses.targetMAC())
	ses.Leaves = Leaves(book, ses.targetMAC())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.logger.Debug("fuota: entering phase", "gateway_id", e.gatewayID, "target", ses.targetMAC(), "phase", ses.Phase)

		var err error
		switch ses.Phase {
		case PhaseOpenFile:
			err = e.openFile(ctx, ses)
		case PhaseGatewayPathSilence:
			err = e.gatewayPathSilence(ctx, ses)
		case PhaseTargetNodeSilence:
			err = e.targetNodeSilence(ctx, ses)
		case PhaseNetworkSilence:
			err = e.networkSilence(ctx, ses)
		case PhaseSectorRead:
			err = e.sectorRead(ctx, ses)
		case PhaseFirmwareSectorCount:
			err = e.firmwareSectorCount(ctx, ses)
		case PhaseEraseFlash:
			err = e.eraseFlash(ctx, ses)
		case PhaseImageTransfer:
			err = e.imageTransfer(ctx, ses)
		case PhaseEndOfPage:
			err = e.endOfPage(ctx, ses)
		case PhaseCrcCompute:
			err = e.crcCompute(ctx, ses)
		case PhaseActivate:
			err = e.activate(ctx, ses)
		case PhaseReadCompareFirmwareVersion:
			err = e.readCompareFirmwareVersion(ctx, ses)
		case PhaseNetworkUnsilence:
			err = e.networkUnsilence(ctx, ses)
		case PhaseTargetNodeUnsilence:
			err = e.targetNodeUnsilence(ctx, ses)
		case PhaseGatewayPathUnsilence:
			err = e.gatewayPathUnsilence(ctx, ses)
		case PhaseRollbackToNormal:
			return e.rollbackToNormal(ctx, ses)
		default:
			return fmt.Errorf("fuota: unknown phase %q", ses.Phase)
		}

		if err != nil {
			return e.fail(ctx, ses, err)
		}
		e.persistPhase(ctx, ses)
	}
}

// advance moves ses to next; Run persists the transition after the phase
// handler returns.
func (e *Engine) advance(ses *Session, next Phase) {
	ses.Phase = next
}

func (e *Engine) persistPhase(ctx context.Context, ses *Session) {
	if err := e.store.UpdateFuotaPhase(ctx, ses.Upload.ID, string(ses.Phase), StatusInProgress, ses.CRC16); err != nil {
		e.logger.Error("fuota: persist phase failed", "upload_id", ses.Upload.ID, "phase", ses.Phase, "error", err)
	}
}

// fail marks the current target failed and, per §4.6's failure semantics,
// moves to NetworkUnsilence to restore normal comms rather than leaving the
// mesh silenced — any further dequeue happens from RollbackToNormal.
func (e *Engine) fail(ctx context.Context, ses *Session, cause error) error {
	e.logger.Warn("fuota: phase failed, unwinding", "upload_id", ses.Upload.ID, "phase", ses.Phase, "error", cause)
	ses.Upload.Status = StatusFailed
	if err := e.store.UpdateFuotaPhase(ctx, ses.Upload.ID, string(ses.Phase), StatusFailed, ses.CRC16); err != nil {
		e.logger.Error("fuota: record failure failed", "upload_id", ses.Upload.ID, "error", err)
	}
	// Already unwinding: don't recurse back into Run and risk looping
	// forever if the unsilence mirror itself fails.
	if isUnsilencePhase(ses.Phase) {
		return fmt.Errorf("fuota: unwind failed at phase %s: %w", ses.Phase, cause)
	}
	ses.Phase = PhaseNetworkUnsilence
	return e.Run(ctx, ses, ses.Book)
}

func isUnsilencePhase(p Phase) bool {
	switch p {
	case PhaseNetworkUnsilence, PhaseTargetNodeUnsilence, PhaseGatewayPathUnsilence, PhaseRollbackToNormal:
		return true
	}
	return false
}

// rollbackToNormal is terminal: there is no further queue model in this
// engine beyond the single Session Run is called with, so completion here
// always means "return to pull mode" — the caller (gateway session glue)
// owns dequeuing the next FUOTA request, if any.
func (e *Engine) rollbackToNormal(ctx context.Context, ses *Session) error {
	status := StatusSuccess
	if ses.Upload.Status == StatusFailed {
		status = StatusFailed
	}
	return e.store.UpdateFuotaPhase(ctx, ses.Upload.ID, string(PhaseRollbackToNormal), status, ses.CRC16)
}

func (e *Engine) sendControl(ctx context.Context, path pathbook.PathInfo, alternates []pathbook.PathInfo, cmd, sub byte) (transactor.Result, error) {
	req := transactor.Request{
		PacketType: pmeshFuotaPacketType,
		PanID:      e.panID,
		SourceAddr: e.sourceAddr,
		Primary:    path,
		Alternates: alternates,
		DlmsFrameID: fuotaControlFrameID,
		DlmsCommand: cmd,
		DlmsSubCommand: sub,
	}
	return e.transactor.Execute(ctx, req)
}

// silenceFour runs the four-step enable/mode-entry/flash-save/flash-exit
// sub-sequence against path, waiting postFlashDelay after each of the two
// flash-touching steps.
func (e *Engine) silenceFour(ctx context.Context, path pathbook.PathInfo, alternates []pathbook.PathInfo) error {
	steps := []byte{subFuotaEnable, subFuotaModeEntry, subFlashSave, subFlashExit}
	for _, sub := range steps {
		result, err := e.sendControl(ctx, path, alternates, cmdSilence, sub)
		if err != nil {
			return fmt.Errorf("fuota: silence sub-command 0x%02X: %w", sub, err)
		}
		if result.State != transactor.StateSuccess {
			return fmt.Errorf("fuota: silence sub-command 0x%02X: terminal state %s", sub, result.State)
		}
		if sub == subFlashSave || sub == subFlashExit {
			e.sleep(postFlashDelay)
		}
	}
	return nil
}

func (e *Engine) unsilenceFour(ctx context.Context, path pathbook.PathInfo, alternates []pathbook.PathInfo) error {
	steps := []byte{subFuotaEnable, subFuotaModeEntry, subFlashSave, subFlashExit}
	for _, sub := range steps {
		result, err := e.sendControl(ctx, path, alternates, cmdUnsilence, sub)
		if err != nil {
			return fmt.Errorf("fuota: unsilence sub-command 0x%02X: %w", sub, err)
		}
		if result.State != transactor.StateSuccess {
			return fmt.Errorf("fuota: unsilence sub-command 0x%02X: terminal state %s", sub, result.State)
		}
		if sub == subFlashSave || sub == subFlashExit {
			e.sleep(postFlashDelay)
		}
	}
	return nil
}

// pmeshFuotaPacketType marks every FUOTA-phase frame as a FUOTA data-query
// at the PMESH layer, per §4.1's packet-type enumeration.
const pmeshFuotaPacketType = pmesh.PacketFuotaDataQuery
