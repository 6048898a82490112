package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmesh/hes/internal/codec/pmesh"
)

func TestConnReadHandshakeDrainsTrailingFields(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("PGWID:3CC1F601000000452 3 1"))
	}()

	conn := NewConn(server, defaultRecvTimeout)
	info, err := conn.ReadHandshake(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "3CC1F60100000045", info.GatewayID)
	assert.Equal(t, 2, info.SignalStrength)
	assert.Equal(t, 3, info.ModemType)
	assert.Equal(t, 1, info.LastState)
}

func TestConnReadHandshakeNoTrailingFields(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("PGWID:0011223344556677"))
	}()

	conn := NewConn(server, defaultRecvTimeout)
	info, err := conn.ReadHandshake(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "0011223344556677", info.GatewayID)
	assert.Equal(t, 0, info.SignalStrength)
}

func TestConnRecvAnswersPingAndReturnsNextFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	frame := []byte{pmesh.StartGateway, 0x02, 0xAA}

	go func() {
		_, _ = client.Write([]byte(pingMessage))
		pong := make([]byte, len(pongMessage))
		_, _ = client.Read(pong)
		_, _ = client.Write(frame)
	}()

	conn := NewConn(server, defaultRecvTimeout)
	got, err := conn.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestConnSendWritesExactFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	frame := []byte{pmesh.StartGateway, 0x01, 0xBB}
	got := make([]byte, len(frame))
	done := make(chan struct{})
	go func() {
		_, _ = client.Read(got)
		close(done)
	}()

	conn := NewConn(server, defaultRecvTimeout)
	err := conn.Send(context.Background(), frame)
	require.NoError(t, err)
	<-done
	assert.Equal(t, frame, got)
}

func TestConnRecvClassifiesDisconnectOnClose(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	_ = client.Close()

	conn := NewConn(server, defaultRecvTimeout)
	_, err := conn.Recv(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
}
