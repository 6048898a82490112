package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
)

func (s *GORMStore) CreateRequest(ctx context.Context, req *models.DlmsOnDemandRequest) error {
	_, err := createWithID(s.db, ctx, req, func(r *models.DlmsOnDemandRequest, id string) { r.ID = id }, req.ID, models.ErrDuplicateRequestID)
	return err
}

func (s *GORMStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, errorCode *uint16) error {
	result := s.db.WithContext(ctx).Model(&models.DlmsOnDemandRequest{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{"status": status, "error_code": errorCode})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrRequestNotFound
	}
	return nil
}

func (s *GORMStore) GetRequest(ctx context.Context, requestID string) (*models.DlmsOnDemandRequest, error) {
	return getByField[models.DlmsOnDemandRequest](s.db, ctx, "request_id", requestID, models.ErrRequestNotFound)
}

func (s *GORMStore) ListPendingRequests(ctx context.Context, gatewayID string) ([]*models.DlmsOnDemandRequest, error) {
	return listAll[models.DlmsOnDemandRequest](
		s.db.Where("gateway_id = ? AND status IN ?", gatewayID, []models.RequestStatus{
			models.RequestStatusRequested,
			models.RequestStatusInProgress,
			models.RequestStatusRetryInProgress,
		}),
		ctx,
	)
}

func (s *GORMStore) MarkGatewayDisconnected(ctx context.Context, gatewayID string) error {
	return s.db.WithContext(ctx).Model(&models.DlmsOnDemandRequest{}).
		Where("gateway_id = ? AND status IN ?", gatewayID, []models.RequestStatus{
			models.RequestStatusRequested,
			models.RequestStatusInProgress,
			models.RequestStatusRetryInProgress,
		}).
		Update("status", models.RequestStatusGWDisconnected).Error
}
