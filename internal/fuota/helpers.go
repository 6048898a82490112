package fuota

import (
	"errors"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/transactor"
)

// controlRequest builds a non-paging transactor.Request against ses's
// current routes for an arbitrary FUOTA command/sub-command/payload.
func (e *Engine) controlRequest(ses *Session, frameID, cmd, sub byte, payload []byte) transactor.Request {
	return transactor.Request{
		PacketType:     pmeshFuotaPacketType,
		PanID:          e.panID,
		SourceAddr:     e.sourceAddr,
		Primary:        ses.Primary,
		Alternates:     ses.Alternates,
		DlmsFrameID:    frameID,
		DlmsCommand:    cmd,
		DlmsSubCommand: sub,
		DlmsPayload:    payload,
	}
}

// controlRequestOn is controlRequest but against an explicit route pair,
// used by ImageTransfer's per-subpage alternate rotation.
func (e *Engine) controlRequestOn(primary pathbook.PathInfo, alternates []pathbook.PathInfo, frameID, cmd, sub byte, payload []byte) transactor.Request {
	return transactor.Request{
		PacketType:     pmeshFuotaPacketType,
		PanID:          e.panID,
		SourceAddr:     e.sourceAddr,
		Primary:        primary,
		Alternates:     alternates,
		DlmsFrameID:    frameID,
		DlmsCommand:    cmd,
		DlmsSubCommand: sub,
		DlmsPayload:    payload,
	}
}

// lastFrame parses the final page of result as a DLMS response frame.
func lastFrame(result transactor.Result) (*dlms.Frame, error) {
	if len(result.Pages) == 0 {
		return nil, errors.New("fuota: response carried no pages")
	}
	return dlms.Parse(result.Pages[len(result.Pages)-1], dlms.Response)
}
