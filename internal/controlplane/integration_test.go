package controlplane_test

import (
	"context"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rfmesh/hes/internal/controlplane"
	"github.com/rfmesh/hes/internal/gateway"
)

// dialBuf spins up a real *grpc.Server with the admin ServiceDesc
// registered and returns a client dialed to it over an in-memory
// bufconn listener, exercising the hand-written codec/handler wiring
// end to end rather than just the Server methods in isolation.
func dialBuf(t *testing.T, reg *gateway.Registry) (*controlplane.Client, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	grpcServer := grpc.NewServer()
	controlplane.Register(grpcServer, controlplane.New(reg, slog.Default()))
	go func() { _ = grpcServer.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	cleanup := func() {
		_ = cc.Close()
		grpcServer.Stop()
	}
	return controlplane.NewClient(cc), cleanup
}

func TestControlPlaneGatewayStatusOverGRPC(t *testing.T) {
	reg := gateway.NewRegistry()
	reg.Register(&gateway.Session{GatewayID: "aaaaaaaaaaaaaaaa", PanID: [4]byte{0x01}, SourceAddr: [4]byte{0x02}})

	client, cleanup := dialBuf(t, reg)
	defer cleanup()

	resp, err := client.GatewayStatus(context.Background(), &controlplane.GatewayStatusRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Gateways, 1)
	require.Equal(t, "aaaaaaaaaaaaaaaa", resp.Gateways[0].GatewayID)
}

func TestControlPlaneKickGatewayNotFoundOverGRPC(t *testing.T) {
	reg := gateway.NewRegistry()

	client, cleanup := dialBuf(t, reg)
	defer cleanup()

	_, err := client.KickGateway(context.Background(), &controlplane.KickGatewayRequest{GatewayID: "deadbeefdeadbeef"})
	require.Error(t, err)
}
