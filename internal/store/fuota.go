package store

import (
	"context"
	"time"

	"github.com/rfmesh/hes/internal/store/models"
	"gorm.io/gorm"
)

func (s *GORMStore) CreateFuotaUpload(ctx context.Context, row *models.DlmsFuotaUpload) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.DlmsFuotaUpload, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) UpdateFuotaPhase(ctx context.Context, id, phase string, status int, crc *uint16) error {
	result := s.db.WithContext(ctx).Model(&models.DlmsFuotaUpload{}).
		Where("id = ?", id).
		Updates(map[string]any{"phase": phase, "status": status, "crc16": crc})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrFuotaUploadNotFound
	}
	return nil
}

func (s *GORMStore) FindResumableFuotaUpload(ctx context.Context, gatewayID string, within time.Duration) (*models.DlmsFuotaUpload, error) {
	var row models.DlmsFuotaUpload
	cutoff := time.Now().Add(-within)
	err := s.db.WithContext(ctx).
		Where("gateway_id = ? AND scheduled_at >= ? AND phase != ?", gatewayID, cutoff, "RollbackToNormal").
		Order("scheduled_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *GORMStore) SilenceNode(ctx context.Context, gatewayID, mac string) error {
	row := &models.SilencedNodeForFuota{GatewayID: gatewayID, MAC: mac}
	_, err := createWithID(s.db, ctx, row, func(r *models.SilencedNodeForFuota, id string) { r.ID = id }, "", models.ErrDuplicateSilencedNode)
	return err
}

func (s *GORMStore) UnsilenceNode(ctx context.Context, gatewayID, mac string) error {
	conditions := map[string]any{"gateway_id": gatewayID, "mac": mac}
	if err := deleteWhere[models.SilencedNodeForFuota](s.db, ctx, conditions, models.ErrSilencedNodeNotFound); err != nil {
		return err
	}

	row := &models.UnsilencedNodeForFuota{GatewayID: gatewayID, MAC: mac}
	_, err := createWithID(s.db, ctx, row, func(r *models.UnsilencedNodeForFuota, id string) { r.ID = id }, "", nil)
	return err
}

func (s *GORMStore) ListSilencedNodes(ctx context.Context, gatewayID string) ([]*models.SilencedNodeForFuota, error) {
	return listAll[models.SilencedNodeForFuota](s.db.Where("gateway_id = ?", gatewayID), ctx)
}

func (s *GORMStore) IsNodeSilenced(ctx context.Context, gatewayID, mac string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SilencedNodeForFuota{}).
		Where("gateway_id = ? AND mac = ?", gatewayID, mac).
		Count(&count).Error
	return count > 0, err
}
