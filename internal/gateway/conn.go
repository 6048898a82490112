package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rfmesh/hes/internal/codec/pmesh"
)

// defaultRecvTimeout bounds every blocking read per spec.md §5 (12s
// nominal recv-timeout).
const defaultRecvTimeout = 12 * time.Second

// ErrDisconnected marks a read/write failure that means the physical TCP
// connection is gone, as opposed to a transient recv-timeout that the
// transactor's retry ladder should absorb (§7: "Disconnects are observed
// by the per-gateway task only").
var ErrDisconnected = errors.New("gateway: connection disconnected")

// Conn wraps one accepted gateway socket. It implements
// transactor.Transport over PMESH's self-delimiting length-prefixed
// framing (byte[1] declares total length minus one) and answers the
// PING/PONG keepalive inline, ahead of frame dispatch — grounded on the
// teacher's NFSConnection read loop (nfs_connection.go), with PMESH's
// length-prefix replacing its RPC fragment header.
type Conn struct {
	raw         net.Conn
	r           *bufio.Reader
	recvTimeout time.Duration
}

// NewConn wraps raw with the given recv-timeout (defaultRecvTimeout if <= 0).
func NewConn(raw net.Conn, recvTimeout time.Duration) *Conn {
	if recvTimeout <= 0 {
		recvTimeout = defaultRecvTimeout
	}
	return &Conn{raw: raw, r: bufio.NewReader(raw), recvTimeout: recvTimeout}
}

func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

func (c *Conn) Close() error { return c.raw.Close() }

// ReadHandshake blocks for the handshake that must open every session,
// using deadline to bound the wait. Only the `PGWID:` prefix plus the
// 16-char id are fixed width; the trailing h1/h2/h3 fields are not (§8
// Scenario A's worked example is longer than the nominal 32 bytes and
// space-separated), so after the fixed part arrives the read drains
// whatever trailing bytes follow with a short per-byte-burst deadline,
// stopping at the first idle gap rather than waiting for an exact count.
func (c *Conn) ReadHandshake(ctx context.Context, deadline time.Duration) (*HandshakeInfo, error) {
	if deadline <= 0 {
		deadline = defaultRecvTimeout
	}
	if err := c.applyReadDeadline(ctx, deadline); err != nil {
		return nil, err
	}
	buf := make([]byte, minHandshakeLen)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, classifyReadErr(fmt.Errorf("gateway: read handshake: %w", err))
	}

	trailing, err := c.drainHandshakeTrailer(ctx)
	if err != nil {
		return nil, err
	}
	buf = append(buf, trailing...)

	return ParseHandshake(buf)
}

// drainHandshakeTrailer best-effort reads whatever bytes follow the fixed
// PGWID:<id> prefix, stopping at the first read that comes back empty
// within a short burst deadline (an idle socket means the peer is done
// sending its h1/h2/h3 fields) or once maxHandshakeTrailingLen is reached.
func (c *Conn) drainHandshakeTrailer(ctx context.Context) ([]byte, error) {
	const burst = 50 * time.Millisecond
	var out []byte
	for len(out) < maxHandshakeTrailingLen {
		if err := c.applyReadDeadline(ctx, burst); err != nil {
			return nil, err
		}
		b, err := c.r.ReadByte()
		if err != nil {
			if isTimeoutErr(err) {
				break
			}
			return nil, classifyReadErr(fmt.Errorf("gateway: read handshake trailer: %w", err))
		}
		out = append(out, b)
	}
	return out, nil
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Send implements transactor.Transport: writes a complete, already-framed
// PMESH frame.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if err := c.applyWriteDeadline(ctx); err != nil {
		return err
	}
	if _, err := c.raw.Write(frame); err != nil {
		return classifyReadErr(fmt.Errorf("gateway: send: %w", err))
	}
	return nil
}

// Recv implements transactor.Transport: blocks for the next complete PMESH
// frame, transparently answering (and discarding) any interleaved PING
// probe first, per spec.md §6's "out-of-band" PING/PONG rule.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	for {
		if err := c.applyReadDeadline(ctx, c.recvTimeout); err != nil {
			return nil, err
		}
		lead, err := c.r.Peek(1)
		if err != nil {
			return nil, classifyReadErr(fmt.Errorf("gateway: recv: %w", err))
		}
		if lead[0] != pmesh.StartGateway && lead[0] != pmesh.StartNMS {
			if err := c.consumePing(); err != nil {
				return nil, err
			}
			continue
		}
		return c.readFrame()
	}
}

// consumePing reads the 4-byte "PING" probe and answers "PONG".
func (c *Conn) consumePing() error {
	buf := make([]byte, len(pingMessage))
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return classifyReadErr(fmt.Errorf("gateway: read ping probe: %w", err))
	}
	if !isPing(buf) {
		return fmt.Errorf("gateway: unexpected non-frame byte sequence %q", buf)
	}
	if _, err := c.raw.Write([]byte(pongMessage)); err != nil {
		return classifyReadErr(fmt.Errorf("gateway: send pong: %w", err))
	}
	return nil
}

// readFrame reads a complete PMESH frame using its self-delimiting
// length: the first two bytes (start, length) are always present; byte[1]
// + 1 is the total frame length, so the remainder is read in one further
// call.
func (c *Conn) readFrame() ([]byte, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(c.r, head); err != nil {
		return nil, classifyReadErr(fmt.Errorf("gateway: read frame header: %w", err))
	}
	declaredLen := int(head[1]) + 1
	if declaredLen < len(head) {
		return nil, fmt.Errorf("gateway: invalid frame length byte %d", head[1])
	}

	frame := make([]byte, declaredLen)
	copy(frame, head)
	if _, err := io.ReadFull(c.r, frame[len(head):]); err != nil {
		return nil, classifyReadErr(fmt.Errorf("gateway: read frame body: %w", err))
	}
	return frame, nil
}

func (c *Conn) applyReadDeadline(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.raw.SetReadDeadline(deadline)
}

func (c *Conn) applyWriteDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.recvTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.raw.SetWriteDeadline(deadline)
}

// classifyReadErr wraps a hard-disconnect error (EOF, closed connection)
// with ErrDisconnected so the session loop can tell it apart from an
// ordinary recv-timeout (a net.Error with Timeout() == true passes
// through unwrapped, and is handled by the transactor's own retry ladder).
func classifyReadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return err
}
