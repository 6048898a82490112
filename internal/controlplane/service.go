package controlplane

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name both server and
// client address this API by.
const ServiceName = "controlplane.GatewayAdmin"

// GatewayAdmin is the operator-facing admin surface spec.md §2's gateway
// registry exposes over gRPC: list connected gateways, and force one to
// disconnect. Mirrors the teacher's NFSv4.1 callback channel in spirit —
// the nearest thing dittofs has to a second, server-initiated control
// channel — repurposed here for human/CLI operators rather than client
// recall.
type GatewayAdmin interface {
	GatewayStatus(ctx context.Context, req *GatewayStatusRequest) (*GatewayStatusResponse, error)
	KickGateway(ctx context.Context, req *KickGatewayRequest) (*KickGatewayResponse, error)
}

// ServiceDesc is registered on a *grpc.Server via RegisterService, the same
// shape protoc-gen-go-grpc emits for a generated service — hand-written
// here since the surface has no .proto schema to generate from.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayAdmin)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GatewayStatus", Handler: gatewayStatusHandler},
		{MethodName: "KickGateway", Handler: kickGatewayHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "controlplane.proto",
}

func gatewayStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GatewayStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayAdmin).GatewayStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/GatewayStatus", ServiceName)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdmin).GatewayStatus(ctx, req.(*GatewayStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func kickGatewayHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(KickGatewayRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if in.GatewayID == "" {
		return nil, status.Error(codes.InvalidArgument, "gateway_id is required")
	}
	if interceptor == nil {
		return srv.(GatewayAdmin).KickGateway(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/KickGateway", ServiceName)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayAdmin).KickGateway(ctx, req.(*KickGatewayRequest))
	}
	return interceptor(ctx, in, info, handler)
}
