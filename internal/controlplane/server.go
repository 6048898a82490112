package controlplane

import (
	"context"
	"encoding/hex"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rfmesh/hes/internal/gateway"
	"github.com/rfmesh/hes/internal/logger"
)

// Server implements GatewayAdmin against a live gateway registry. It holds
// no state of its own — every call is a direct read/mutation of the
// registry the gateway.Server accepting connections already owns.
type Server struct {
	registry *gateway.Registry
	log      *slog.Logger
}

// New builds a Server backed by registry.
func New(registry *gateway.Registry, baseLogger *slog.Logger) *Server {
	return &Server{registry: registry, log: baseLogger}
}

// Register attaches this admin surface's ServiceDesc to an existing
// *grpc.Server, the same pattern a generated RegisterGatewayAdminServer
// function would follow.
func Register(grpcServer *grpc.Server, srv *Server) {
	grpcServer.RegisterService(&ServiceDesc, srv)
}

func (s *Server) GatewayStatus(ctx context.Context, req *GatewayStatusRequest) (*GatewayStatusResponse, error) {
	var ids []string
	if req.GatewayID != "" {
		if _, ok := s.registry.Get(req.GatewayID); !ok {
			return &GatewayStatusResponse{}, nil
		}
		ids = []string{req.GatewayID}
	} else {
		ids = s.registry.List()
	}

	resp := &GatewayStatusResponse{Gateways: make([]GatewayInfo, 0, len(ids))}
	for _, id := range ids {
		ses, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		resp.Gateways = append(resp.Gateways, GatewayInfo{
			GatewayID:  ses.GatewayID,
			PanID:      hex.EncodeToString(ses.PanID[:]),
			SourceAddr: hex.EncodeToString(ses.SourceAddr[:]),
		})
	}
	return resp, nil
}

func (s *Server) KickGateway(ctx context.Context, req *KickGatewayRequest) (*KickGatewayResponse, error) {
	ses, ok := s.registry.Get(req.GatewayID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "gateway %q is not connected", req.GatewayID)
	}
	if err := ses.Disconnect(); err != nil {
		logger.ErrorCtx(ctx, "controlplane: kick gateway failed", slog.String(logger.KeyGatewayID, req.GatewayID), slog.Any("error", err))
		return nil, status.Errorf(codes.Internal, "disconnect %q: %v", req.GatewayID, err)
	}
	logger.InfoCtx(ctx, "controlplane: gateway kicked", slog.String(logger.KeyGatewayID, req.GatewayID))
	return &KickGatewayResponse{Disconnected: true}, nil
}
