package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
	"github.com/google/uuid"
)

func (s *GORMStore) UpsertMeterDetails(ctx context.Context, details *models.MeterDetails) error {
	if details.ID == "" {
		details.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).
		Where("gateway_id = ? AND mac = ?", details.GatewayID, details.MAC).
		Assign(*details).
		FirstOrCreate(details).Error
}

func (s *GORMStore) GetMeterDetails(ctx context.Context, gatewayID, mac string) (*models.MeterDetails, error) {
	var row models.MeterDetails
	err := s.db.WithContext(ctx).
		Where("gateway_id = ? AND mac = ?", gatewayID, mac).
		First(&row).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrMeterDetailsNotFound)
	}
	return &row, nil
}

func (s *GORMStore) AppendNamePlateData(ctx context.Context, row *models.NamePlateData) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.NamePlateData, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) HasNamePlateData(ctx context.Context, gatewayID, mac string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.NamePlateData{}).
		Where("gateway_id = ? AND mac = ?", gatewayID, mac).
		Count(&count).Error
	return count > 0, err
}
