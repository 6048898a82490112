package models

import "time"

// DlmsFuotaUpload tracks a single firmware rollout. Phase holds the FUOTA
// phase name; Status is 2 while in progress, 1 marks success at terminal
// activation, 0 marks final rollback failure.
type DlmsFuotaUpload struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID        string    `gorm:"index;not null;size:16" json:"gateway_id"`
	TargetMAC        string    `gorm:"index;not null;size:16" json:"target_mac"`
	FirmwarePath     string    `gorm:"type:text;not null" json:"firmware_path"`
	FirmwareFilename string    `gorm:"size:255;not null" json:"firmware_filename"`
	Phase            string    `gorm:"size:32;not null" json:"phase"`
	Status           int       `json:"status"`
	CRC16            *uint16   `json:"crc16,omitempty"`
	ScheduledAt      time.Time `gorm:"autoCreateTime" json:"scheduled_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DlmsFuotaUpload) TableName() string { return "dlms_fuota_upload" }

// SilencedNodeForFuota tracks a leaf silenced for the duration of a FUOTA
// session, keyed per (gateway, mac) so un-silence can be targeted.
type SilencedNodeForFuota struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID  string    `gorm:"uniqueIndex:idx_snf_gw_mac;not null;size:16" json:"gateway_id"`
	MAC        string    `gorm:"uniqueIndex:idx_snf_gw_mac;not null;size:16" json:"mac"`
	SilencedAt time.Time `gorm:"autoCreateTime" json:"silenced_at"`
}

func (SilencedNodeForFuota) TableName() string { return "silenced_nodes_for_fuota" }

// UnsilencedNodeForFuota is an append-only record of un-silence completions,
// written by UnsilenceNode; no store method reads it back.
type UnsilencedNodeForFuota struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID    string    `gorm:"index;not null;size:16" json:"gateway_id"`
	MAC          string    `gorm:"index;not null;size:16" json:"mac"`
	UnsilencedAt time.Time `gorm:"autoCreateTime" json:"unsilenced_at"`
}

func (UnsilencedNodeForFuota) TableName() string { return "unsilenced_nodes_for_fuota" }
