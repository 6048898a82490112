package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCycleID(t *testing.T) {
	mk := func(hh, mm int) time.Time {
		return time.Date(2026, 7, 31, hh, mm, 0, 0, time.UTC)
	}

	assert.Equal(t, 1, CalculateCycleID(mk(0, 7)))
	assert.Equal(t, 2, CalculateCycleID(mk(0, 22)))
	assert.Equal(t, 96, CalculateCycleID(mk(23, 52)))
	assert.Equal(t, 62, CalculateCycleID(mk(15, 18)))
}

func TestLastHourWindowWrapsAtDayStart(t *testing.T) {
	assert.Equal(t, [4]int{94, 95, 96, 1}, LastHourWindow(2))
	assert.Equal(t, [4]int{1, 2, 3, 4}, LastHourWindow(5))
}

// fakeStore is a minimal in-memory store.Store covering only what the
// scheduler exercises; every unused method panics if called.
type fakeStore struct {
	nameplate      map[string]bool
	ipPushedCycles map[string]map[int]bool
	silenced       []*models.SilencedNodeForFuota
	unsilenced     []string
	cancelled      []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nameplate:      make(map[string]bool),
		ipPushedCycles: make(map[string]map[int]bool),
	}
}

func key(gatewayID, mac string) string { return gatewayID + "/" + mac }

func (f *fakeStore) LoadPrimaryRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return []store.NodeRoute{{MAC: "AABBCCDD", HopCount: 0, PathHex: "3CC1F601A3535435"}}, nil
}
func (f *fakeStore) LoadAlternateRoutes(ctx context.Context, gatewayID string) ([]store.NodeRoute, error) {
	return nil, nil
}

func (f *fakeStore) UpsertMeterDetails(ctx context.Context, details *models.MeterDetails) error {
	panic("not used")
}
func (f *fakeStore) GetMeterDetails(ctx context.Context, gatewayID, mac string) (*models.MeterDetails, error) {
	panic("not used")
}
func (f *fakeStore) AppendNamePlateData(ctx context.Context, row *models.NamePlateData) error {
	panic("not used")
}
func (f *fakeStore) HasNamePlateData(ctx context.Context, gatewayID, mac string) (bool, error) {
	return f.nameplate[key(gatewayID, mac)], nil
}

func (f *fakeStore) AppendIPPush(ctx context.Context, row *models.DlmsIPPushData) error {
	panic("not used")
}
func (f *fakeStore) HasIPPushForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	cycles := f.ipPushedCycles[key(gatewayID, mac)]
	return cycles[cycleID], nil
}
func (f *fakeStore) AppendBlockLoadPush(ctx context.Context, row *models.DlmsBlockLoadPushProfile) error {
	panic("not used")
}
func (f *fakeStore) HasBlockLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return true, nil
}
func (f *fakeStore) AppendDailyLoadPush(ctx context.Context, row *models.DlmsDailyLoadPushProfile) error {
	panic("not used")
}
func (f *fakeStore) HasDailyLoadForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return true, nil
}
func (f *fakeStore) AppendHistoryData(ctx context.Context, row *models.DlmsHistoryData) error {
	panic("not used")
}
func (f *fakeStore) HasHistoryForCycle(ctx context.Context, gatewayID, mac string, cycleID int) (bool, error) {
	return true, nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, req *models.DlmsOnDemandRequest) error {
	panic("not used")
}
func (f *fakeStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, errorCode *uint16) error {
	f.cancelled = append(f.cancelled, requestID)
	return nil
}
func (f *fakeStore) GetRequest(ctx context.Context, requestID string) (*models.DlmsOnDemandRequest, error) {
	panic("not used")
}
func (f *fakeStore) ListPendingRequests(ctx context.Context, gatewayID string) ([]*models.DlmsOnDemandRequest, error) {
	panic("not used")
}
func (f *fakeStore) MarkGatewayDisconnected(ctx context.Context, gatewayID string) error {
	panic("not used")
}

func (f *fakeStore) CreateFuotaUpload(ctx context.Context, row *models.DlmsFuotaUpload) error {
	panic("not used")
}
func (f *fakeStore) UpdateFuotaPhase(ctx context.Context, id, phase string, status int, crc *uint16) error {
	panic("not used")
}
func (f *fakeStore) FindResumableFuotaUpload(ctx context.Context, gatewayID string, within time.Duration) (*models.DlmsFuotaUpload, error) {
	panic("not used")
}
func (f *fakeStore) SilenceNode(ctx context.Context, gatewayID, mac string) error {
	panic("not used")
}
func (f *fakeStore) UnsilenceNode(ctx context.Context, gatewayID, mac string) error {
	f.unsilenced = append(f.unsilenced, mac)
	return nil
}
func (f *fakeStore) ListSilencedNodes(ctx context.Context, gatewayID string) ([]*models.SilencedNodeForFuota, error) {
	return f.silenced, nil
}
func (f *fakeStore) IsNodeSilenced(ctx context.Context, gatewayID, mac string) (bool, error) {
	return false, nil
}

func (f *fakeStore) UpsertGatewayStatus(ctx context.Context, status *models.GatewayStatusInfo) error {
	panic("not used")
}
func (f *fakeStore) AppendConnectionLog(ctx context.Context, entry *models.GatewayConnectionLog) error {
	panic("not used")
}
func (f *fakeStore) AppendMqttInfo(ctx context.Context, entry *models.DlmsMqttInfo) error {
	panic("not used")
}

func (f *fakeStore) AcquireGateway(ctx context.Context, gatewayID, controllerID string) (bool, error) {
	return true, nil
}
func (f *fakeStore) ReleaseGateway(ctx context.Context, gatewayID, controllerID string) error {
	return nil
}

var _ store.Store = (*fakeStore)(nil)

// fakeDispatcher records which profile pulls were issued.
type fakeDispatcher struct {
	pulled []string
}

func (d *fakeDispatcher) PullNameplate(ctx context.Context, mac string) (transactor.Result, error) {
	d.pulled = append(d.pulled, "nameplate:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}
func (d *fakeDispatcher) PullIFV(ctx context.Context, mac string) (transactor.Result, error) {
	d.pulled = append(d.pulled, "ifv:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}
func (d *fakeDispatcher) PullInstantaneous(ctx context.Context, mac string, cycleID int) (transactor.Result, error) {
	d.pulled = append(d.pulled, "ip:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}
func (d *fakeDispatcher) PullDailyLoad(ctx context.Context, mac string) (transactor.Result, error) {
	d.pulled = append(d.pulled, "dlp:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}
func (d *fakeDispatcher) PullBlockLoad(ctx context.Context, mac string) (transactor.Result, error) {
	d.pulled = append(d.pulled, "blp:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}
func (d *fakeDispatcher) PullBillingHistory(ctx context.Context, mac string) (transactor.Result, error) {
	d.pulled = append(d.pulled, "bhp:"+mac)
	return transactor.Result{State: transactor.StateSuccess}, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCyclePullsMissingNameplateAndIP(t *testing.T) {
	fs := newFakeStore()
	disp := &fakeDispatcher{}
	sched := New("GW1", "controller-a", fs, disp, silentLogger())

	err := sched.RunCycle(context.Background(), time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Contains(t, disp.pulled, "nameplate:AABBCCDD")
	assert.NotContains(t, disp.pulled, "ifv:AABBCCDD")
	// four last-hour IP cycles, all missing from the fake store.
	ipCount := 0
	for _, p := range disp.pulled {
		if p == "ip:AABBCCDD" {
			ipCount++
		}
	}
	assert.Equal(t, 4, ipCount)
}

func TestRunCycleUnsilencesListedNodes(t *testing.T) {
	fs := newFakeStore()
	fs.silenced = []*models.SilencedNodeForFuota{{GatewayID: "GW1", MAC: "AABBCCDD"}}
	disp := &fakeDispatcher{}
	sched := New("GW1", "controller-a", fs, disp, silentLogger())

	err := sched.RunCycle(context.Background(), time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AABBCCDD"}, fs.unsilenced)
}
