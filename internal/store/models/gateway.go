package models

import "time"

// GatewayStatusInfo is the latest known connectivity snapshot for a gateway.
//
// It is upserted on every handshake and every disconnect; the store
// exposes no method that reads it back.
type GatewayStatusInfo struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID      string    `gorm:"uniqueIndex;not null;size:16" json:"gateway_id"`
	Status         string    `gorm:"size:20;not null" json:"status"` // CONNECTED | DISCONNECTED
	SignalStrength int       `json:"signal_strength"`
	ModemType      int       `json:"modem_type"`
	LastState      int       `json:"last_state"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GatewayStatusInfo) TableName() string { return "gateway_status_info" }

// GatewayConnectionLog is an append-only history of gateway connect,
// disconnect, and duplicate-eviction events.
type GatewayConnectionLog struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID      string    `gorm:"index;not null;size:16" json:"gateway_id"`
	Event          string    `gorm:"size:30;not null" json:"event"` // CONNECTED | DISCONNECTED | DUPLICATE_EVICTED
	SignalStrength int       `json:"signal_strength"`
	ModemType      int       `json:"modem_type"`
	LastState      int       `json:"last_state"`
	Reason         string    `gorm:"size:255" json:"reason,omitempty"`
	OccurredAt     time.Time `gorm:"autoCreateTime" json:"occurred_at"`
}

func (GatewayConnectionLog) TableName() string { return "gateway_connection_log" }

// DlmsMqttInfo records MQTT connectivity transitions (subscribe/unsubscribe)
// for a gateway's ONDEMAND_REQUEST topic.
type DlmsMqttInfo struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID  string    `gorm:"index;not null;size:16" json:"gateway_id"`
	Event      string    `gorm:"size:20;not null" json:"event"` // SUBSCRIBED | UNSUBSCRIBED | SUPPRESSED
	Topic      string    `gorm:"size:255;not null" json:"topic"`
	OccurredAt time.Time `gorm:"autoCreateTime" json:"occurred_at"`
}

func (DlmsMqttInfo) TableName() string { return "dlms_mqtt_info" }

// HesNmsSyncTime is the cross-controller handshake table consulted by the
// scheduler's per-cycle preamble before a gateway is acquired for polling.
type HesNmsSyncTime struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID    string    `gorm:"uniqueIndex;not null;size:16" json:"gateway_id"`
	ControllerID string    `gorm:"size:64;not null" json:"controller_id"`
	State        int       `json:"state"` // 1 == held by ControllerID
	AcquiredAt   time.Time `gorm:"autoUpdateTime" json:"acquired_at"`
}

func (HesNmsSyncTime) TableName() string { return "hes_nms_sync_time" }
