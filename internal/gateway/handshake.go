package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

const handshakePrefix = "PGWID:"

// gatewayIDLen is the fixed width of the gateway id carried in every
// handshake, per spec.md §6's `PGWID:<16-char id><h1 h2 h3>` grammar.
const gatewayIDLen = 16

// minHandshakeLen is the one fixed-width part of the handshake: the
// `PGWID:` prefix plus the 16-char id. Conn reads exactly this many bytes
// first, then best-effort drains whatever trailing h1/h2/h3 bytes follow —
// see Conn.ReadHandshake, since the grammar's own worked example (§8
// Scenario A) shows the trailing fields are not a fixed width.
const minHandshakeLen = len(handshakePrefix) + gatewayIDLen

// maxHandshakeTrailingLen bounds the best-effort trailing read so a
// malformed or silent peer cannot hold a handshake open indefinitely.
const maxHandshakeTrailingLen = 32

// HandshakeInfo is the decoded first message of a gateway TCP session:
// the 16-char gateway id plus the connection-quality fields
// original_source/HES/src/server.cpp records alongside it into
// gateway_status_info / gateway_connection_log.
type HandshakeInfo struct {
	GatewayID      string
	SignalStrength int
	ModemType      int
	LastState      int
}

// ParseHandshake decodes a gateway's first inbound message.
//
// spec.md §6 describes a fixed 32-byte frame (`PGWID:` + 16-char id + three
// decimal integers h1/h2/h3) but its own worked example
// (`"PGWID:3CC1F6010000004501020304 5 3 1"`) is both longer than 32 bytes
// and carries its three integers as trailing whitespace-separated decimal
// numbers rather than packed fixed-width digits — the spec flags this
// itself ("adjust to your handshake source"). This parser takes the
// grammar's one unambiguous fact — a fixed 16-char id immediately after
// the `PGWID:` prefix — as the id boundary, then parses whatever
// whitespace-separated decimal integers follow as
// signal-strength/modem-type/last-state, in order, defaulting any missing
// trailing field to zero. Documented as an assumption rather than a
// literal byte-exact reproduction; see DESIGN.md.
func ParseHandshake(line []byte) (*HandshakeInfo, error) {
	s := strings.TrimRight(string(line), "\x00")
	if !strings.HasPrefix(s, handshakePrefix) {
		return nil, fmt.Errorf("gateway: handshake missing %q prefix", handshakePrefix)
	}
	rest := s[len(handshakePrefix):]
	if len(rest) < gatewayIDLen {
		return nil, fmt.Errorf("gateway: handshake too short for a %d-char id", gatewayIDLen)
	}

	info := &HandshakeInfo{GatewayID: rest[:gatewayIDLen]}

	fields := strings.Fields(rest[gatewayIDLen:])
	values := make([]int, 3)
	for i, field := range fields {
		if i >= len(values) {
			break
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("gateway: handshake field %d not an integer: %w", i, err)
		}
		values[i] = n
	}
	info.SignalStrength, info.ModemType, info.LastState = values[0], values[1], values[2]

	return info, nil
}

const (
	pingMessage = "PING"
	pongMessage = "PONG"
)

// isPing reports whether line is the out-of-band keepalive probe, checked
// ahead of PMESH/DLMS frame dispatch per spec.md §6.
func isPing(line []byte) bool {
	return strings.TrimRight(string(line), "\x00") == pingMessage
}
