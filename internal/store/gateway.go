package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
	"github.com/google/uuid"
)

func (s *GORMStore) UpsertGatewayStatus(ctx context.Context, status *models.GatewayStatusInfo) error {
	if status.ID == "" {
		status.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).
		Where("gateway_id = ?", status.GatewayID).
		Assign(*status).
		FirstOrCreate(status).Error
}

func (s *GORMStore) AppendConnectionLog(ctx context.Context, entry *models.GatewayConnectionLog) error {
	_, err := createWithID(s.db, ctx, entry, func(r *models.GatewayConnectionLog, id string) { r.ID = id }, entry.ID, nil)
	return err
}

func (s *GORMStore) AppendMqttInfo(ctx context.Context, entry *models.DlmsMqttInfo) error {
	_, err := createWithID(s.db, ctx, entry, func(r *models.DlmsMqttInfo, id string) { r.ID = id }, entry.ID, nil)
	return err
}
