package store

import (
	"context"

	"github.com/rfmesh/hes/internal/store/models"
)

func (s *GORMStore) AppendIPPush(ctx context.Context, row *models.DlmsIPPushData) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.DlmsIPPushData, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) HasIPPushForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return s.profilePushExists(ctx, &models.DlmsIPPushData{}, gatewayID, mac, cycleID)
}

func (s *GORMStore) AppendBlockLoadPush(ctx context.Context, row *models.DlmsBlockLoadPushProfile) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.DlmsBlockLoadPushProfile, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) HasBlockLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return s.profilePushExists(ctx, &models.DlmsBlockLoadPushProfile{}, gatewayID, mac, cycleID)
}

func (s *GORMStore) AppendDailyLoadPush(ctx context.Context, row *models.DlmsDailyLoadPushProfile) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.DlmsDailyLoadPushProfile, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) HasDailyLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return s.profilePushExists(ctx, &models.DlmsDailyLoadPushProfile{}, gatewayID, mac, cycleID)
}

func (s *GORMStore) AppendHistoryData(ctx context.Context, row *models.DlmsHistoryData) error {
	_, err := createWithID(s.db, ctx, row, func(r *models.DlmsHistoryData, id string) { r.ID = id }, row.ID, nil)
	return err
}

func (s *GORMStore) HasHistoryForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return s.profilePushExists(ctx, &models.DlmsHistoryData{}, gatewayID, mac, cycleID)
}

// profilePushExists checks presence across any of the four profile-push
// tables, which all share the (gateway_id, mac, cycle_id) shape.
func (s *GORMStore) profilePushExists(ctx context.Context, model any, gatewayID, mac string, cycleID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(model).
		Where("gateway_id = ? AND mac = ? AND cycle_id = ?", gatewayID, mac, cycleID).
		Count(&count).Error
	return count > 0, err
}
