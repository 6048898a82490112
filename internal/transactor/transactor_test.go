package transactor

import (
	"context"
	"testing"

	"github.com/rfmesh/hes/internal/codec/dlms"
	"github.com/rfmesh/hes/internal/codec/pmesh"
	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/protoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPanID = [4]byte{0x01, 0x02, 0x03, 0x04}
var testSourceAddr = [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
var testDestAddr = [4]byte{0x10, 0x20, 0x30, 0x40}

func directPath() pathbook.PathInfo {
	return pathbook.PathInfo{HopCount: 0, Hops: [][4]byte{testDestAddr}}
}

// scriptedTransport replays a fixed sequence of responses, one per Send,
// and records every frame it was asked to send.
type scriptedTransport struct {
	responses [][]byte
	errs      []error
	sent      [][]byte
	next      int
}

func (s *scriptedTransport) Send(ctx context.Context, frame []byte) error {
	s.sent = append(s.sent, frame)
	return nil
}

func (s *scriptedTransport) Recv(ctx context.Context) ([]byte, error) {
	i := s.next
	s.next++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

func buildSuccessResponse(t *testing.T, pageIndex byte) []byte {
	t.Helper()
	dlmsPayload := []byte{0x01, 0x00, 0x07, 0x00, 0x2A} // one uint16 record
	dlmsFrame := dlms.BuildResponse(pageIndex, 0x0E, 0x00, 0x00, dlmsPayload)
	outer, err := pmesh.Build(0x03, testPanID, testDestAddr, 0, testDestAddr[:], dlmsFrame, true)
	require.NoError(t, err)
	return outer
}

func TestExecuteSuccessNoPaging(t *testing.T) {
	transport := &scriptedTransport{responses: [][]byte{buildSuccessResponse(t, 0)}}
	tx := New(transport, nil)

	req := Request{
		PacketType:  0x03,
		PanID:       testPanID,
		SourceAddr:  testSourceAddr,
		Primary:     directPath(),
		DlmsFrameID: 0x0E,
		DlmsPayload: []byte{0x01, 0x00, 0x07},
	}

	result, err := tx.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, result.State)
	assert.Len(t, result.Pages, 1)
	assert.Len(t, transport.sent, 1)
}

func TestExecuteRetryTimeoutThenSuccess(t *testing.T) {
	timeoutErr := &protoerr.TransportError{Kind: protoerr.TransportTimeout}
	transport := &scriptedTransport{
		errs:      []error{timeoutErr, timeoutErr, nil},
		responses: [][]byte{nil, nil, buildSuccessResponse(t, 0)},
	}
	tx := New(transport, nil)

	req := Request{
		PacketType:  0x03,
		PanID:       testPanID,
		SourceAddr:  testSourceAddr,
		Primary:     directPath(),
		DlmsFrameID: 0x0E,
		DlmsPayload: []byte{0x01, 0x00, 0x07},
	}

	result, err := tx.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, result.State)
	assert.Len(t, transport.sent, 3)
}

func TestExecutePollTimeoutTerminalImmediately(t *testing.T) {
	transport := &scriptedTransport{errs: []error{&protoerr.TransportError{Kind: protoerr.TransportTimeout}}, responses: [][]byte{nil}}
	tx := New(transport, nil)

	req := Request{
		PacketType:  0x03,
		PanID:       testPanID,
		SourceAddr:  testSourceAddr,
		Primary:     directPath(),
		DlmsFrameID: 0x0F,
		DlmsPayload: []byte{0x01, 0x00, 0x07},
		IsPingNode:  true,
	}

	result, err := tx.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, StatePollTimeout, result.State)
	assert.Len(t, transport.sent, 1)
}

func TestExecuteRetryLadderExhaustedRotatesToAlternate(t *testing.T) {
	timeoutErr := &protoerr.TransportError{Kind: protoerr.TransportTimeout}
	// primary route times out until its retry budget is exhausted, then
	// the alternate route succeeds on its first attempt.
	transport := &scriptedTransport{
		errs:      []error{timeoutErr, timeoutErr, timeoutErr, nil},
		responses: [][]byte{nil, nil, nil, buildSuccessResponse(t, 0)},
	}
	tx := New(transport, nil)

	req := Request{
		PacketType:  0x03,
		PanID:       testPanID,
		SourceAddr:  testSourceAddr,
		Primary:     directPath(),
		Alternates:  []pathbook.PathInfo{directPath()},
		DlmsFrameID: 0x0E,
		DlmsPayload: []byte{0x01, 0x00, 0x07},
	}

	result, err := tx.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, result.State)
	assert.Len(t, transport.sent, 4)
}
