package gateway

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/rfmesh/hes/internal/codec/pmesh"
	"github.com/rfmesh/hes/internal/mqttctl"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
)

// decodeDestPath turns an MQTT command's dest-path-hex into a PathInfo,
// mirroring internal/pathbook's own extraction rule: the grammar's
// `16 * (hop-count + 1)` length matches exactly the stored
// source_route_network shape — (hop-count+1) groups of 4 bytes with the
// first group a gateway prefix to strip — so an ODM command's path is
// decoded the same way a stored route is.
func decodeDestPath(hopCount int, destPathHex string) (pathbook.PathInfo, error) {
	raw, err := hex.DecodeString(destPathHex)
	if err != nil {
		return pathbook.PathInfo{}, fmt.Errorf("gateway: dest-path-hex is not valid hex: %w", err)
	}
	if len(raw) < 4 {
		return pathbook.PathInfo{}, fmt.Errorf("gateway: dest-path-hex too short to strip gateway prefix")
	}
	stripped := raw[4:]

	wantLen := hopCount * 4
	if hopCount < 1 {
		wantLen = 4
	}
	if len(stripped) != wantLen {
		return pathbook.PathInfo{}, fmt.Errorf("gateway: dest-path hop list length %d does not match hop-count %d (want %d)", len(stripped), hopCount, wantLen)
	}

	hops := make([][4]byte, 0, len(stripped)/4)
	for i := 0; i+4 <= len(stripped); i += 4 {
		var group [4]byte
		copy(group[:], stripped[i:i+4])
		hops = append(hops, group)
	}
	return pathbook.PathInfo{HopCount: hopCount, Hops: hops}, nil
}

// macFromDestPath returns the hex-encoded final hop group of a command's
// dest-path-hex — the node's short address — used as the MAC key the
// path book (and every store table keyed by MAC) was loaded under. ODM
// commands address a node directly via their own dest-path-hex and never
// need this; FUOTA commands resolve routing through the path book by MAC
// (internal/fuota.Engine.Run calls book.Primary(targetMAC)), so the
// target must first be reduced to that same MAC identifier.
func macFromDestPath(hopCount int, destPathHex string) (string, error) {
	path, err := decodeDestPath(hopCount, destPathHex)
	if err != nil {
		return "", err
	}
	if len(path.Hops) == 0 {
		return "", fmt.Errorf("gateway: dest-path has no hops to derive a target mac from")
	}
	last := path.Hops[len(path.Hops)-1]
	return hex.EncodeToString(last[:]), nil
}

// decodeCommandHex splits an ODM command's command-hex into the DLMS
// frame-id/command/sub-command triplet plus any trailing payload bytes.
// The grammar (§6) only says command-hex "must match the expected
// opcode/sub-opcode for its type"; no byte-exact layout is given beyond
// the illustrative FUOTA examples (`2F 06 06 ...`), so this adopts the
// same three-leading-bytes convention internal/fuota's control frames use
// — first byte frame-id, second command, third sub-command, remainder
// (if any) payload. Documented as an assumption; see DESIGN.md.
func decodeCommandHex(commandHex string) (frameID, cmd, sub byte, payload []byte, err error) {
	raw, err := hex.DecodeString(commandHex)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("gateway: command-hex is not valid hex: %w", err)
	}
	if len(raw) < 3 {
		return 0, 0, 0, nil, fmt.Errorf("gateway: command-hex too short: need at least 3 bytes, got %d", len(raw))
	}
	return raw[0], raw[1], raw[2], raw[3:], nil
}

// buildODMRequest constructs the transactor.Request for one ODM/special
// command, addressed on the path the command itself specifies (the
// gateway is not consulted through the path book for an explicit ODM
// target, unlike a scheduled pull).
func (d *dispatcher) buildODMRequest(cmd *mqttctl.Command) (transactor.Request, error) {
	path, err := decodeDestPath(cmd.HopCount, cmd.DestPathHex)
	if err != nil {
		return transactor.Request{}, err
	}
	frameID, c, sub, payload, err := decodeCommandHex(cmd.CommandHex)
	if err != nil {
		return transactor.Request{}, err
	}
	return transactor.Request{
		PacketType:     pmesh.PacketDataQuery,
		PanID:          d.panID,
		SourceAddr:     d.sourceAddr,
		Primary:        path,
		DlmsFrameID:    frameID,
		DlmsCommand:    c,
		DlmsSubCommand: sub,
		DlmsPayload:    payload,
	}, nil
}

// runODMCommand executes one queued ODM/special command and persists its
// terminal status.
func (d *dispatcher) runODMCommand(ctx context.Context, cmd *mqttctl.Command) {
	req, err := d.buildODMRequest(cmd)
	if err != nil {
		status := models.RequestStatusFailedInvalidResponse
		if updErr := d.store.UpdateRequestStatus(ctx, cmd.RequestID, status, nil); updErr != nil {
			return
		}
		return
	}

	result, execErr := d.tx.Execute(ctx, req)
	status, errorCode := requestStatusFor(result.State)
	if execErr != nil && result.State == 0 {
		status = models.RequestStatusFailedUnknown
	}
	if result.DlmsErrorCode != 0 {
		code := result.DlmsErrorCode
		errorCode = &code
	}
	_ = d.store.UpdateRequestStatus(ctx, cmd.RequestID, status, errorCode)
}

// requestStatusFor maps a transactor terminal state to the canonical
// dlms_on_demand_request status code (§6).
func requestStatusFor(state transactor.State) (models.RequestStatus, *uint16) {
	switch state {
	case transactor.StateSuccess, transactor.StateNextPage:
		return models.RequestStatusSuccess, nil
	case transactor.StateRetryTimeout, transactor.StatePollTimeout:
		return models.RequestStatusFailedRFTimeout, nil
	case transactor.StateDlmsChecksumError:
		return models.RequestStatusFailedChecksum, nil
	case transactor.StateInvalidResponse:
		return models.RequestStatusFailedInvalidResponse, nil
	case transactor.StateDlmsConnectionFailed:
		return models.RequestStatusFailedDlmsConnection, nil
	case transactor.StatePmeshError:
		return models.RequestStatusFailedMeshProtocol, nil
	case transactor.StateCancelled:
		return models.RequestStatusCancelled, nil
	default:
		return models.RequestStatusFailedUnknown, nil
	}
}

// requestRowFor builds the initial, REQUESTED-status persisted row for a
// freshly parsed ODM command.
func requestRowFor(gatewayID string, cmd *mqttctl.Command) *models.DlmsOnDemandRequest {
	targetMAC, err := macFromDestPath(cmd.HopCount, cmd.DestPathHex)
	if err != nil {
		targetMAC = cmd.DestPathHex
	}
	return &models.DlmsOnDemandRequest{
		RequestID:    cmd.RequestID,
		GatewayID:    gatewayID,
		TargetMAC:    targetMAC,
		HopCount:     cmd.HopCount,
		DestPathHex:  cmd.DestPathHex,
		DownloadType: cmd.DownloadType,
		CommandHex:   cmd.CommandHex,
		Status:       models.RequestStatusRequested,
	}
}
