package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
)

func (s *GORMStore) LoadPrimaryRoutes(ctx context.Context, gatewayID string) ([]NodeRoute, error) {
	rows, err := listAll[models.SourceRouteNetwork](
		s.db.Where("gateway_id = ?", gatewayID), ctx,
	)
	if err != nil {
		return nil, err
	}

	routes := make([]NodeRoute, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, NodeRoute{
			MAC:      r.MAC,
			Ordinal:  0,
			HopCount: r.HopCount,
			PathHex:  r.PathHex,
		})
	}
	return routes, nil
}

func (s *GORMStore) LoadAlternateRoutes(ctx context.Context, gatewayID string) ([]NodeRoute, error) {
	rows, err := listAll[models.AlternateSourceRouteNetwork](
		s.db.Where("gateway_id = ?", gatewayID).Order("mac, ordinal"), ctx,
	)
	if err != nil {
		return nil, err
	}

	routes := make([]NodeRoute, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, NodeRoute{
			MAC:      r.MAC,
			Ordinal:  r.Ordinal,
			HopCount: r.HopCount,
			PathHex:  r.PathHex,
		})
	}
	return routes, nil
}
