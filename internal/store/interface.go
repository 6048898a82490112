// Package store is the relational persistence boundary named in the
// engine's external interfaces: every table the protocol engine reads from
// or writes to is reached through the Store interface, never through raw
// SQL scattered across the engine's packages.
//
// Store is composed of small per-concern interfaces so that callers (the
// path book, the scheduler, the FUOTA engine, the gateway registry) depend
// only on the slice of persistence they actually use.
package store

import (
	"context"
	"time"

	"github.com/rfmesh/hes/internal/store/models"
)

// NodeRoute is the primary-or-alternate route record the path book loads
// for a single node. Ordinal is an alternate's rank (0 is the first
// alternate); primary and alternate routes are loaded by separate calls.
type NodeRoute struct {
	MAC      string
	Ordinal  int
	HopCount int
	PathHex  string
}

// RouteStore is the read-only source of truth for mesh routing.
type RouteStore interface {
	// LoadPrimaryRoutes returns the primary route for every node reachable
	// through gatewayID.
	LoadPrimaryRoutes(ctx context.Context, gatewayID string) ([]NodeRoute, error)

	// LoadAlternateRoutes returns every alternate route for every node
	// reachable through gatewayID, ordered by Ordinal ascending.
	LoadAlternateRoutes(ctx context.Context, gatewayID string) ([]NodeRoute, error)
}

// MeterStore tracks per-node meter identity and firmware state.
type MeterStore interface {
	// UpsertMeterDetails creates or updates the (gateway, mac) row.
	UpsertMeterDetails(ctx context.Context, details *models.MeterDetails) error

	// GetMeterDetails returns models.ErrMeterDetailsNotFound if absent.
	GetMeterDetails(ctx context.Context, gatewayID, mac string) (*models.MeterDetails, error)

	// AppendNamePlateData records a nameplate pull.
	AppendNamePlateData(ctx context.Context, row *models.NamePlateData) error

	// HasNamePlateData reports whether a node has ever been pulled.
	HasNamePlateData(ctx context.Context, gatewayID, mac string) (bool, error)
}

// ProfileStore persists the four profile-push tables and answers the
// presence checks MissingCycleInfo needs.
type ProfileStore interface {
	AppendIPPush(ctx context.Context, row *models.DlmsIPPushData) error
	HasIPPushForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error)

	AppendBlockLoadPush(ctx context.Context, row *models.DlmsBlockLoadPushProfile) error
	HasBlockLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error)

	AppendDailyLoadPush(ctx context.Context, row *models.DlmsDailyLoadPushProfile) error
	HasDailyLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error)

	AppendHistoryData(ctx context.Context, row *models.DlmsHistoryData) error
	HasHistoryForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error)
}

// RequestStore tracks the ODM request lifecycle.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.DlmsOnDemandRequest) error
	UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, errorCode *uint16) error
	GetRequest(ctx context.Context, requestID string) (*models.DlmsOnDemandRequest, error)
	ListPendingRequests(ctx context.Context, gatewayID string) ([]*models.DlmsOnDemandRequest, error)

	// MarkGatewayDisconnected transitions every in-flight request for
	// gatewayID to GW_DISCONNECTED, used by the disconnect path.
	MarkGatewayDisconnected(ctx context.Context, gatewayID string) error
}

// FuotaStore tracks firmware rollouts and the silence/un-silence state of
// the mesh during a rollout.
type FuotaStore interface {
	CreateFuotaUpload(ctx context.Context, row *models.DlmsFuotaUpload) error
	UpdateFuotaPhase(ctx context.Context, id, phase string, status int, crc *uint16) error

	// FindResumableFuotaUpload returns the most recent upload for gatewayID
	// scheduled within the resume window, or nil if none qualifies.
	FindResumableFuotaUpload(ctx context.Context, gatewayID string, within time.Duration) (*models.DlmsFuotaUpload, error)

	SilenceNode(ctx context.Context, gatewayID, mac string) error
	UnsilenceNode(ctx context.Context, gatewayID, mac string) error
	ListSilencedNodes(ctx context.Context, gatewayID string) ([]*models.SilencedNodeForFuota, error)
	IsNodeSilenced(ctx context.Context, gatewayID, mac string) (bool, error)
}

// GatewayStore records gateway and MQTT connectivity transitions.
type GatewayStore interface {
	UpsertGatewayStatus(ctx context.Context, status *models.GatewayStatusInfo) error
	AppendConnectionLog(ctx context.Context, entry *models.GatewayConnectionLog) error
	AppendMqttInfo(ctx context.Context, entry *models.DlmsMqttInfo) error
}

// SyncStore implements the cross-controller gateway-acquisition handshake
// consulted by the scheduler's per-cycle preamble.
type SyncStore interface {
	// AcquireGateway attempts to mark gatewayID as held by controllerID.
	// Returns held=false if another controller already holds it.
	AcquireGateway(ctx context.Context, gatewayID, controllerID string) (held bool, err error)
	ReleaseGateway(ctx context.Context, gatewayID, controllerID string) error
}

// Store is the full persistence surface the engine depends on.
type Store interface {
	RouteStore
	MeterStore
	ProfileStore
	RequestStore
	FuotaStore
	GatewayStore
	SyncStore
}
