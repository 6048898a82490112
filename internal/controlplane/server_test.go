package controlplane_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rfmesh/hes/internal/controlplane"
	"github.com/rfmesh/hes/internal/gateway"
)

func newTestServer(t *testing.T, sessions ...*gateway.Session) (*controlplane.Server, *gateway.Registry) {
	t.Helper()
	reg := gateway.NewRegistry()
	for _, ses := range sessions {
		reg.Register(ses)
	}
	return controlplane.New(reg, slog.Default()), reg
}

func TestGatewayStatusListsAll(t *testing.T) {
	a := &gateway.Session{GatewayID: "aaaaaaaaaaaaaaaa", PanID: [4]byte{0x01}, SourceAddr: [4]byte{0x02}}
	b := &gateway.Session{GatewayID: "bbbbbbbbbbbbbbbb", PanID: [4]byte{0x03}, SourceAddr: [4]byte{0x04}}
	srv, _ := newTestServer(t, a, b)

	resp, err := srv.GatewayStatus(context.Background(), &controlplane.GatewayStatusRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Gateways, 2)
}

func TestGatewayStatusFiltersByID(t *testing.T) {
	a := &gateway.Session{GatewayID: "aaaaaaaaaaaaaaaa", PanID: [4]byte{0x01}, SourceAddr: [4]byte{0x02}}
	b := &gateway.Session{GatewayID: "bbbbbbbbbbbbbbbb"}
	srv, _ := newTestServer(t, a, b)

	resp, err := srv.GatewayStatus(context.Background(), &controlplane.GatewayStatusRequest{GatewayID: "aaaaaaaaaaaaaaaa"})
	require.NoError(t, err)
	require.Len(t, resp.Gateways, 1)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", resp.Gateways[0].GatewayID)
	assert.Equal(t, "01000000", resp.Gateways[0].PanID)
}

func TestGatewayStatusUnknownIDReturnsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.GatewayStatus(context.Background(), &controlplane.GatewayStatusRequest{GatewayID: "zzzzzzzzzzzzzzzz"})
	require.NoError(t, err)
	assert.Empty(t, resp.Gateways)
}

func TestKickGatewayNotFoundReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.KickGateway(context.Background(), &controlplane.KickGatewayRequest{GatewayID: "ffffffffffffffff"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
