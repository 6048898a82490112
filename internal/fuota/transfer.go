package fuota

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/protoerr"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
)

const dlmsSuccess = transactor.StateSuccess

// Wire constants for the phases beyond the shared silence/unsilence
// sub-sequence. The spec's illustrative byte sequences for ImageTransfer
// (`2F 06 06 01 ...` / `2D 08 07 01 ...`) describe the overall shape, not a
// byte-exact wire contract; the engine expresses the same shape through
// the shared dlms.Build/Parse machinery with its own frame-id/command
// assignments — see DESIGN.md.
const (
	cmdSectorRead        byte = 0x03
	cmdInitiateFwInfo    byte = 0x04
	cmdEraseFlash        byte = 0x05
	cmdImageTransfer     byte = 0x06
	subImageTransferData byte = 0x01
	cmdImageAck          byte = 0x07
	subImageAckFinal     byte = 0x00
	subImageAckMore      byte = 0x01
	subImageSubpageMismatch byte = 0x02
	subImagePageMismatch    byte = 0x03
	cmdEndOfPage         byte = 0x08
	cmdCrcVerify         byte = 0x0A
	cmdActivateRead      byte = 0x0B
	cmdActivateStatus    byte = 0x0C
	cmdReadFirmwareVersion byte = 0x0D
)

// maxFrameSize, headerOverhead and checksumOverhead feed maxPayloadSize,
// which computes `max-payload = 128 - header - 8`. 128 is the mesh link's
// maximum frame size; headerOverhead (17) is the engine's own accounting of
// the PMESH header for a direct (hop-count-0) destination: the 13 fixed
// bytes plus one 4-byte hop group. The DLMS sub-frame's own bytes are not
// counted in it. The constant's derivation is a documented assumption.
const (
	maxFrameSize    = 128
	headerOverhead  = 17
	checksumOverhead = 8
)

func maxPayloadSize() int { return maxFrameSize - headerOverhead - checksumOverhead }

func (e *Engine) openFile(ctx context.Context, ses *Session) error {
	info, err := e.fs.Stat(ses.imagePath())
	if err != nil {
		return &protoerr.FirmwareIOError{Kind: protoerr.FirmwareNotFound}
	}
	ses.ImageSize = info.Size()
	e.advance(ses, PhaseGatewayPathSilence)
	return nil
}

func (e *Engine) gatewayPathSilence(ctx context.Context, ses *Session) error {
	if err := e.silenceFour(ctx, ses.Primary, ses.Alternates); err != nil {
		return err
	}
	e.advance(ses, PhaseTargetNodeSilence)
	return nil
}

func (e *Engine) targetNodeSilence(ctx context.Context, ses *Session) error {
	if err := e.silenceFour(ctx, ses.Primary, ses.Alternates); err != nil {
		return err
	}
	e.advance(ses, PhaseNetworkSilence)
	return nil
}

// networkSilence silences every leaf per-leaf, continuing for the rest of
// the set regardless of an individual leaf's failure (§4.6 step 4).
func (e *Engine) networkSilence(ctx context.Context, ses *Session) error {
	for _, mac := range ses.Leaves {
		path, ok := ses.Book.Primary(mac)
		if !ok {
			continue
		}
		if err := e.silenceFour(ctx, path, ses.Book.Alternates(mac)); err != nil {
			if serr := e.store.SilenceNode(ctx, e.gatewayID, mac); serr != nil {
				e.logger.Error("fuota: record leaf silence failed", "mac", mac, "error", serr)
			}
			e.logger.Warn("fuota: leaf silence failed, continuing", "mac", mac, "error", err)
			continue
		}
		if err := e.store.SilenceNode(ctx, e.gatewayID, mac); err != nil {
			e.logger.Error("fuota: record leaf silence failed", "mac", mac, "error", err)
		}
	}
	e.advance(ses, PhaseSectorRead)
	return nil
}

func (e *Engine) sectorRead(ctx context.Context, ses *Session) error {
	result, err := e.sendControl(ctx, ses.Primary, ses.Alternates, cmdSectorRead, 0)
	if err != nil {
		return fmt.Errorf("fuota: sector read: %w", err)
	}
	frame, err := lastFrame(result)
	if err != nil {
		return err
	}
	for _, rec := range frame.Records {
		if rec.Value.Kind == dlms.KindUint16 {
			ses.SectorSize = rec.Value.Uint16()
			break
		}
	}
	if ses.SectorSize == 0 {
		return fmt.Errorf("fuota: sector read returned zero sector size")
	}
	e.advance(ses, PhaseFirmwareSectorCount)
	return nil
}

func (e *Engine) firmwareSectorCount(ctx context.Context, ses *Session) error {
	ses.MaxPayload = maxPayloadSize()
	ses.MinPayload = ses.MaxPayload
	ses.PageCount = int(ses.ImageSize) / int(ses.SectorSize)
	ses.SubpageCount = int(ses.SectorSize)/ses.MaxPayload + 1

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(ses.ImageSize))

	req := e.controlRequest(ses, fuotaControlFrameID, cmdInitiateFwInfo, 0, payload)
	result, err := e.transactor.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("fuota: firmware sector count: %w", err)
	}
	if result.State != dlmsSuccess {
		return fmt.Errorf("fuota: firmware sector count: terminal state %s", result.State)
	}
	e.advance(ses, PhaseEraseFlash)
	return nil
}

func (e *Engine) eraseFlash(ctx context.Context, ses *Session) error {
	result, err := e.sendControl(ctx, ses.Primary, ses.Alternates, cmdEraseFlash, 0)
	if err != nil {
		return fmt.Errorf("fuota: erase flash: %w", err)
	}
	if result.State != dlmsSuccess {
		return fmt.Errorf("fuota: erase flash: terminal state %s", result.State)
	}
	e.sleep(postFlashDelay)
	e.advance(ses, PhaseImageTransfer)
	return nil
}

func (e *Engine) endOfPage(ctx context.Context, ses *Session) error {
	result, err := e.sendControl(ctx, ses.Primary, ses.Alternates, cmdEndOfPage, 0)
	if err != nil {
		return fmt.Errorf("fuota: end of page: %w", err)
	}
	if result.State != dlmsSuccess {
		return fmt.Errorf("fuota: end of page: terminal state %s", result.State)
	}
	e.advance(ses, PhaseCrcCompute)
	return nil
}

func (e *Engine) crcCompute(ctx context.Context, ses *Session) error {
	crc, err := ses.crcFor(e.fs)
	if err != nil {
		return err
	}
	payload := []byte{byte(crc >> 8), byte(crc)}
	req := e.controlRequest(ses, fuotaControlFrameID, cmdCrcVerify, 1, payload)
	result, err := e.transactor.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("fuota: crc verify: %w", err)
	}
	if result.State != dlmsSuccess {
		return fmt.Errorf("fuota: crc verify: terminal state %s", result.State)
	}
	e.advance(ses, PhaseActivate)
	return nil
}

func (e *Engine) activate(ctx context.Context, ses *Session) error {
	for _, cmd := range []byte{cmdActivateRead, cmdActivateStatus} {
		result, err := e.sendControl(ctx, ses.Primary, ses.Alternates, cmd, 0)
		if err != nil {
			return fmt.Errorf("fuota: activate 0x%02X: %w", cmd, err)
		}
		if result.State != dlmsSuccess {
			return fmt.Errorf("fuota: activate 0x%02X: terminal state %s", cmd, result.State)
		}
		e.sleep(postFlashDelay)
	}
	e.advance(ses, PhaseReadCompareFirmwareVersion)
	return nil
}

func (e *Engine) readCompareFirmwareVersion(ctx context.Context, ses *Session) error {
	result, err := e.sendControl(ctx, ses.Primary, ses.Alternates, cmdReadFirmwareVersion, 0)
	if err != nil {
		return fmt.Errorf("fuota: read firmware version: %w", err)
	}
	frame, err := lastFrame(result)
	if err != nil {
		return err
	}
	for _, rec := range frame.Records {
		if rec.Value.Kind == dlms.KindString {
			ses.FirmwareVersion = rec.Value.String()
			break
		}
	}
	update := &models.MeterDetails{
		GatewayID:               e.gatewayID,
		MAC:                     ses.targetMAC(),
		RFModuleFirmwareVersion: ses.FirmwareVersion,
	}
	if err := e.store.UpsertMeterDetails(ctx, update); err != nil {
		e.logger.Error("fuota: record firmware version failed", "mac", ses.targetMAC(), "error", err)
	}
	e.advance(ses, PhaseNetworkUnsilence)
	return nil
}

func (e *Engine) networkUnsilence(ctx context.Context, ses *Session) error {
	for _, mac := range ses.Leaves {
		path, ok := ses.Book.Primary(mac)
		if !ok {
			continue
		}
		if err := e.unsilenceFour(ctx, path, ses.Book.Alternates(mac)); err != nil {
			e.logger.Warn("fuota: leaf unsilence failed, continuing", "mac", mac, "error", err)
			continue
		}
		if err := e.store.UnsilenceNode(ctx, e.gatewayID, mac); err != nil {
			e.logger.Error("fuota: record leaf unsilence failed", "mac", mac, "error", err)
		}
	}
	e.advance(ses, PhaseTargetNodeUnsilence)
	return nil
}

func (e *Engine) targetNodeUnsilence(ctx context.Context, ses *Session) error {
	if err := e.unsilenceFour(ctx, ses.Primary, ses.Alternates); err != nil {
		return err
	}
	e.advance(ses, PhaseGatewayPathUnsilence)
	return nil
}

func (e *Engine) gatewayPathUnsilence(ctx context.Context, ses *Session) error {
	if err := e.unsilenceFour(ctx, ses.Primary, ses.Alternates); err != nil {
		return err
	}
	e.advance(ses, PhaseRollbackToNormal)
	return nil
}
