package models

// AllModels returns every GORM model for AutoMigrate registration.
func AllModels() []any {
	return []any{
		&SourceRouteNetwork{},
		&AlternateSourceRouteNetwork{},
		&MeterDetails{},
		&NamePlateData{},
		&DlmsIPPushData{},
		&DlmsBlockLoadPushProfile{},
		&DlmsDailyLoadPushProfile{},
		&DlmsHistoryData{},
		&DlmsOnDemandRequest{},
		&DlmsFuotaUpload{},
		&SilencedNodeForFuota{},
		&UnsilencedNodeForFuota{},
		&GatewayStatusInfo{},
		&GatewayConnectionLog{},
		&DlmsMqttInfo{},
		&HesNmsSyncTime{},
	}
}
