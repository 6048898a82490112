package models

import (
	"encoding/json"
	"time"
)

// profilePush is the shape shared by the four profile-push tables: a
// decoded record keyed by cycle-id, persisted as a JSON blob of the
// profile's data-index -> value map.
type profilePush struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID string    `gorm:"index:idx_gw_mac_cycle;not null;size:16" json:"gateway_id"`
	MAC       string    `gorm:"index:idx_gw_mac_cycle;not null;size:16" json:"mac"`
	CycleID   int       `gorm:"index:idx_gw_mac_cycle" json:"cycle_id"`
	Data      string    `gorm:"type:text;not null" json:"-"`
	PushedAt  time.Time `gorm:"autoCreateTime" json:"pushed_at"`
}

// GetData unmarshals the persisted JSON blob into a data-index keyed map.
func (p *profilePush) GetData() (map[string]any, error) {
	values := make(map[string]any)
	if p.Data == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(p.Data), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// SetData marshals a data-index keyed map into the persisted JSON blob.
func (p *profilePush) SetData(values map[string]any) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	p.Data = string(raw)
	return nil
}

// DlmsIPPushData is the instantaneous-profile push, one row per cycle-id.
type DlmsIPPushData struct {
	profilePush
}

func (DlmsIPPushData) TableName() string { return "dlms_ip_push_data" }

// DlmsBlockLoadPushProfile is the block-load profile push, one row per
// hourly cycle.
type DlmsBlockLoadPushProfile struct {
	profilePush
}

func (DlmsBlockLoadPushProfile) TableName() string { return "dlms_block_load_push_profile" }

// DlmsDailyLoadPushProfile is the daily-load profile push, one row per day.
type DlmsDailyLoadPushProfile struct {
	profilePush
}

func (DlmsDailyLoadPushProfile) TableName() string { return "dlms_daily_load_push_profile" }

// DlmsHistoryData is the billing-history profile push, one row per
// billing month.
type DlmsHistoryData struct {
	profilePush
}

func (DlmsHistoryData) TableName() string { return "dlms_history_data" }
