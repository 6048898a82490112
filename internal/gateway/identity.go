package gateway

import (
	"encoding/hex"
	"fmt"
)

// decodeGatewayID splits a 16-char gateway id into its pan-id and gateway
// short-address, per the engine's convention that the gateway id is
// itself the 16-hex-char encoding of pan-id‖gateway-short-address (8
// bytes) — consistent with pathbook's "4-byte gateway prefix stripped
// from the stored hex path" rule, which strips exactly this same value.
// Not stated explicitly in spec.md, but the only reading under which the
// id, the pan-id, and the gateway short-address — three otherwise
// unrelated-looking fields — are all a consistent 16-hex-char/8-byte
// shape; see DESIGN.md.
func decodeGatewayID(id string) (panID, sourceAddr [4]byte, err error) {
	raw, err := hex.DecodeString(id)
	if err != nil {
		return panID, sourceAddr, fmt.Errorf("gateway: id %q is not valid hex: %w", id, err)
	}
	if len(raw) != 8 {
		return panID, sourceAddr, fmt.Errorf("gateway: id %q decodes to %d bytes, want 8", id, len(raw))
	}
	copy(panID[:], raw[:4])
	copy(sourceAddr[:], raw[4:])
	return panID, sourceAddr, nil
}
