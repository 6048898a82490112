package models

import "errors"

// Gateway errors
var (
	ErrGatewayStatusNotFound = errors.New("models: gateway status not found")
	ErrDuplicateGatewayID    = errors.New("models: duplicate gateway id")
)

// Route errors
var (
	ErrRouteNotFound          = errors.New("models: source route not found")
	ErrDuplicateRoute         = errors.New("models: duplicate source route")
	ErrMeterDetailsNotFound   = errors.New("models: meter details not found")
	ErrNamePlateDataNotFound  = errors.New("models: nameplate data not found")
)

// Profile push errors
var (
	ErrProfileRecordNotFound = errors.New("models: profile push record not found")
)

// On-demand request errors
var (
	ErrRequestNotFound      = errors.New("models: on-demand request not found")
	ErrDuplicateRequestID   = errors.New("models: duplicate request id")
)

// FUOTA errors
var (
	ErrFuotaUploadNotFound     = errors.New("models: fuota upload record not found")
	ErrDuplicateFuotaUpload    = errors.New("models: duplicate fuota upload record")
	ErrSilencedNodeNotFound    = errors.New("models: silenced node record not found")
	ErrDuplicateSilencedNode   = errors.New("models: duplicate silenced node record")
	ErrUnsilencedNodeNotFound  = errors.New("models: unsilenced node record not found")
)

// Sync errors
var (
	ErrSyncRecordNotFound = errors.New("models: nms sync record not found")
)
