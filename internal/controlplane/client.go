package controlplane

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client is a thin wrapper the `hes gateway list|kick` CLI subcommands
// dial against; it calls through grpc.ClientConn.Invoke rather than a
// generated stub, mirroring ServiceDesc/service.go's hand-written
// equivalent of protoc-gen-go-grpc output.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) GatewayStatus(ctx context.Context, req *GatewayStatusRequest) (*GatewayStatusResponse, error) {
	resp := new(GatewayStatusResponse)
	method := fmt.Sprintf("/%s/GatewayStatus", ServiceName)
	if err := c.cc.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) KickGateway(ctx context.Context, req *KickGatewayRequest) (*KickGatewayResponse, error) {
	resp := new(KickGatewayResponse)
	method := fmt.Sprintf("/%s/KickGateway", ServiceName)
	if err := c.cc.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return resp, nil
}
