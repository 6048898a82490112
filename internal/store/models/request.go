package models

import "time"

// RequestStatus mirrors the on-demand-request lifecycle codes.
type RequestStatus int

const (
	RequestStatusRequested               RequestStatus = 0
	RequestStatusInProgress              RequestStatus = 2
	RequestStatusSuccess                 RequestStatus = 3
	RequestStatusRetryInProgress         RequestStatus = 4
	RequestStatusCancelled               RequestStatus = 5
	RequestStatusFailedRFTimeout         RequestStatus = 6
	RequestStatusFailedChecksum          RequestStatus = 7
	RequestStatusFailedInvalidResponse   RequestStatus = 8
	RequestStatusFailedDlmsConnection    RequestStatus = 9
	RequestStatusGWDisconnected          RequestStatus = 10
	RequestStatusFailedAlternateExhausted RequestStatus = 11
	RequestStatusFailedMeshProtocol      RequestStatus = 12
	RequestStatusFailedUnknown          RequestStatus = 13
)

// IsTerminal reports whether the status ends the request's lifecycle.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusSuccess, RequestStatusCancelled, RequestStatusGWDisconnected:
		return true
	}
	return s >= RequestStatusFailedRFTimeout && s <= RequestStatusFailedUnknown
}

// DlmsOnDemandRequest is one queued ODM command and its lifecycle status.
// Uniqueness of RequestID is enforced by this table's unique index;
// mqttctl.Dedup separately drops repeats among recently seen ids.
type DlmsOnDemandRequest struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	RequestID    string        `gorm:"uniqueIndex;not null;size:32" json:"request_id"`
	GatewayID    string        `gorm:"index;not null;size:16" json:"gateway_id"`
	TargetMAC    string        `gorm:"index;not null;size:16" json:"target_mac"`
	HopCount     int           `json:"hop_count"`
	DestPathHex  string        `gorm:"type:text;not null" json:"dest_path_hex"`
	DownloadType int           `json:"download_type"`
	CommandHex   string        `gorm:"type:text;not null" json:"command_hex"`
	Status       RequestStatus `gorm:"not null" json:"status"`
	ErrorCode    *uint16       `json:"error_code,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DlmsOnDemandRequest) TableName() string { return "dlms_on_demand_request" }
