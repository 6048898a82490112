package models

import "time"

// SourceRouteNetwork is the primary mesh route to a node, read-only source
// of truth maintained outside the engine (network planning tooling writes
// it; the path book only reads it).
type SourceRouteNetwork struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	GatewayID string `gorm:"index:idx_srn_gw_mac,unique;not null;size:16" json:"gateway_id"`
	MAC       string `gorm:"index:idx_srn_gw_mac,unique;not null;size:16" json:"mac"`
	HopCount  int    `json:"hop_count"`
	PathHex   string `gorm:"type:text;not null" json:"path_hex"`
}

func (SourceRouteNetwork) TableName() string { return "source_route_network" }

// AlternateSourceRouteNetwork holds ranked alternate routes for a node,
// ordered by Ordinal (0 == first alternate tried on primary-route failure).
type AlternateSourceRouteNetwork struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	GatewayID string `gorm:"index:idx_asrn_gw_mac;not null;size:16" json:"gateway_id"`
	MAC       string `gorm:"index:idx_asrn_gw_mac;not null;size:16" json:"mac"`
	Ordinal   int    `json:"ordinal"`
	HopCount  int    `json:"hop_count"`
	PathHex   string `gorm:"type:text;not null" json:"path_hex"`
}

func (AlternateSourceRouteNetwork) TableName() string { return "alternate_source_route_network" }

// MeterDetails is upserted on (gateway, mac); it carries the node's
// announced and RF-module firmware versions; the gateway dispatcher's IFV
// pull reads and updates it.
type MeterDetails struct {
	ID                      string     `gorm:"primaryKey;size:36" json:"id"`
	GatewayID               string     `gorm:"uniqueIndex:idx_md_gw_mac;not null;size:16" json:"gateway_id"`
	MAC                     string     `gorm:"uniqueIndex:idx_md_gw_mac;not null;size:16" json:"mac"`
	InternalFirmwareVersion string     `gorm:"size:64" json:"internal_firmware_version,omitempty"`
	RFModuleFirmwareVersion string     `gorm:"size:64" json:"rf_module_firmware_version,omitempty"`
	LastSeenAt              *time.Time `json:"last_seen_at,omitempty"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MeterDetails) TableName() string { return "meter_details" }

// NamePlateData is appended per pull; a node may have several rows across
// its lifetime and the scheduler only checks for existence ("pulled at
// all"), not freshness.
type NamePlateData struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	GatewayID    string    `gorm:"index:idx_npd_gw_mac;not null;size:16" json:"gateway_id"`
	MAC          string    `gorm:"index:idx_npd_gw_mac;not null;size:16" json:"mac"`
	Manufacturer string    `gorm:"size:64" json:"manufacturer,omitempty"`
	MeterType    string    `gorm:"size:64" json:"meter_type,omitempty"`
	SerialNumber string    `gorm:"size:64" json:"serial_number,omitempty"`
	CycleID      int       `json:"cycle_id"`
	PulledAt     time.Time `gorm:"autoCreateTime" json:"pulled_at"`
}

func (NamePlateData) TableName() string { return "name_plate_data" }
