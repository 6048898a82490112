package fuota

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/protoerr"
	"github.com/rfmesh/hes/internal/transactor"
)

// pageMismatch is the target's "I'm actually at (page, subpage)" reply to
// an out-of-sequence ImageTransfer frame (§4.6 step 8's subtype 02/03).
type pageMismatch struct {
	page           int
	subpage        int
	isPageMismatch bool
}

// resumeOffset computes the firmware file offset for a given (page,
// subpage) position — Testable Property / Scenario F.
func resumeOffset(page, subpage int, sector uint16, maxPayload int) int64 {
	return int64(page)*int64(sector) + int64(subpage)*int64(maxPayload)
}

func buildTransferPayload(subpage, page int, chunk []byte) []byte {
	payload := make([]byte, 0, 3+len(chunk))
	payload = append(payload, byte(subpage), byte(page>>8), byte(page))
	return append(payload, chunk...)
}

// detectMismatch recognises a subpage- or page-mismatch response. The
// queried position is carried as two records: a uint16 page followed by a
// uint8 subpage — a documented convention, since the spec names the
// mismatch subtype byte but not the record layout of the queried position.
func detectMismatch(frame *dlms.Frame) (*pageMismatch, bool) {
	if frame.Command != cmdImageAck {
		return nil, false
	}
	switch frame.SubCommand {
	case subImageSubpageMismatch, subImagePageMismatch:
	default:
		return nil, false
	}
	mm := &pageMismatch{isPageMismatch: frame.SubCommand == subImagePageMismatch}
	for i, rec := range frame.Records {
		switch i {
		case 0:
			mm.page = int(rec.Value.Uint16())
		case 1:
			mm.subpage = int(rec.Value.Uint8())
		}
	}
	return mm, true
}

func readChunkAt(file afero.File, offset int64, maxPayload int, imageSize int64) ([]byte, error) {
	remaining := imageSize - offset
	if remaining <= 0 {
		return nil, fmt.Errorf("fuota: read offset %d past image size %d", offset, imageSize)
	}
	n := maxPayload
	if int64(n) > remaining {
		n = int(remaining)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, &protoerr.FirmwareIOError{Kind: protoerr.FirmwareRead}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, &protoerr.FirmwareIOError{Kind: protoerr.FirmwareRead}
	}
	return buf, nil
}

// imageTransfer is the §4.6 step 8 load loop: for every (page, subpage)
// pair, read a chunk, frame it, and send it, rewinding on a mismatch
// response rather than treating it as a failure. The alternate-route
// rotation within each send reuses the shared transactor ladder — see
// DESIGN.md for why this engine does not hand-roll a separate
// bounded-at-3 ladder for this phase alone.
func (e *Engine) imageTransfer(ctx context.Context, ses *Session) error {
	file, err := e.fs.Open(ses.imagePath())
	if err != nil {
		return &protoerr.FirmwareIOError{Kind: protoerr.FirmwareOpen}
	}
	defer file.Close()

	altOrder := pathbook.ForHopCount(ses.Alternates, ses.Primary.HopCount)

	for ses.CurrentPage < ses.PageCount {
		for ses.CurrentSubpage < ses.SubpageCount {
			if err := ctx.Err(); err != nil {
				return err
			}

			offset := resumeOffset(ses.CurrentPage, ses.CurrentSubpage, ses.SectorSize, ses.MaxPayload)
			if offset >= ses.ImageSize {
				break
			}
			chunk, err := readChunkAt(file, offset, ses.MaxPayload, ses.ImageSize)
			if err != nil {
				return err
			}

			payload := buildTransferPayload(ses.CurrentSubpage, ses.CurrentPage, chunk)
			req := e.controlRequestOn(ses.Primary, altOrder, fuotaControlFrameID, cmdImageTransfer, subImageTransferData, payload)
			result, err := e.transactor.Execute(ctx, req)
			if err != nil || result.State != transactor.StateSuccess {
				return fmt.Errorf("fuota: image transfer page %d subpage %d: %w", ses.CurrentPage, ses.CurrentSubpage, err)
			}

			frame, err := lastFrame(result)
			if err != nil {
				return err
			}

			if mm, ok := detectMismatch(frame); ok {
				ses.CurrentPage = mm.page
				ses.CurrentSubpage = mm.subpage
				if mm.isPageMismatch {
					ses.CurrentSubpage++
				}
				continue
			}

			ses.CurrentSubpage++
		}
		ses.CurrentSubpage = 0
		ses.CurrentPage++
	}

	e.advance(ses, PhaseEndOfPage)
	return nil
}
