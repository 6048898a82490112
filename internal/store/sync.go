package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcquireGateway implements the scheduler's cycle-preamble handshake: it
// claims gatewayID for controllerID unless another controller already
// holds it (state == 1 with a different controller id).
func (s *GORMStore) AcquireGateway(ctx context.Context, gatewayID, controllerID string) (bool, error) {
	var held bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.HesNmsSyncTime
		err := tx.Where("gateway_id = ?", gatewayID).First(&row).Error

		switch {
		case err == gorm.ErrRecordNotFound:
			row = models.HesNmsSyncTime{ID: uuid.NewString(), GatewayID: gatewayID, ControllerID: controllerID, State: 1}
			held = true
			return tx.Create(&row).Error

		case err != nil:
			return err

		case row.State == 1 && row.ControllerID != controllerID:
			held = false
			return nil

		default:
			held = true
			return tx.Model(&row).Updates(map[string]any{
				"controller_id": controllerID,
				"state":         1,
			}).Error
		}
	})

	return held, err
}

func (s *GORMStore) ReleaseGateway(ctx context.Context, gatewayID, controllerID string) error {
	result := s.db.WithContext(ctx).Model(&models.HesNmsSyncTime{}).
		Where("gateway_id = ? AND controller_id = ?", gatewayID, controllerID).
		Update("state", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrSyncRecordNotFound
	}
	return nil
}
