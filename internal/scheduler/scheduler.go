// Package scheduler plans and drives one gateway's periodic pull cycle:
// cycle-id bookkeeping, per-node gap analysis, and profile-priority
// dispatch through an injected Dispatcher.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfmesh/hes/internal/pathbook"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
	"github.com/rfmesh/hes/internal/transactor"
)

const (
	acquireGatewayTimeout = 2 * time.Minute
	acquirePollInterval   = 30 * time.Second
	cyclesPerDay          = 96
	quartersPerHour       = 4
)

// CalculateCycleID returns the quarter-hour cycle-id (1..96) for at, using
// the tolerance variant (+5 minutes before the /15 division) — the
// canonical form per spec.md §9's resolution of the source's duplicated
// implementations.
func CalculateCycleID(at time.Time) int {
	tolerant := at.Add(5 * time.Minute)
	return tolerant.Hour()*quartersPerHour + tolerant.Minute()/15 + 1
}

// LastHourWindow returns the four cycle-ids preceding current, wrapping
// around the 1..96 boundary at day start.
func LastHourWindow(current int) [4]int {
	var window [4]int
	for i := 0; i < 4; i++ {
		id := current - 4 + i
		for id < 1 {
			id += cyclesPerDay
		}
		window[i] = id
	}
	return window
}

func quarterWithinHour(cycleID int) uint {
	return uint((cycleID - 1) % quartersPerHour)
}

// IsScalarProfileAvailable is kept as a literal stub per spec.md §9: "do
// not infer richer behaviour" — always true.
func IsScalarProfileAvailable(mac string) bool { return true }

// IsIFVAvailableForNode is kept as a literal stub per spec.md §9: the
// source's tri-state return is collapsed to a bool here, matching how the
// scheduler itself treats it.
func IsIFVAvailableForNode(mac string) bool { return true }

// MissingCycleInfo is the per-node gap report computed before issuing
// transactions, per §4.5 step 3.
type MissingCycleInfo struct {
	MissingIPCycles  []int
	MissingDLP       bool
	MissingBLP       bool
	MissingBHP       bool
	MissingNameplate bool
	MissingIFV       bool
	Silenced         bool
}

// Dispatcher sends one profile-kind request for a node and returns the
// transactor's outcome. The scheduler stays decoupled from frame
// construction; the gateway session glue implements this.
type Dispatcher interface {
	PullNameplate(ctx context.Context, mac string) (transactor.Result, error)
	PullIFV(ctx context.Context, mac string) (transactor.Result, error)
	PullInstantaneous(ctx context.Context, mac string, cycleID int) (transactor.Result, error)
	PullDailyLoad(ctx context.Context, mac string) (transactor.Result, error)
	PullBlockLoad(ctx context.Context, mac string) (transactor.Result, error)
	PullBillingHistory(ctx context.Context, mac string) (transactor.Result, error)
}

// CancelSet is the MQTT-control-plane cancellation set the scheduler
// drains between nodes when it becomes non-empty mid-cycle.
type CancelSet interface {
	NonEmpty() bool
	Drain() []string
}

// Scheduler plans and drives one gateway's pull cycles.
type Scheduler struct {
	gatewayID    string
	controllerID string
	store        store.Store
	dispatcher   Dispatcher
	logger       *slog.Logger

	doneMask uint8
	lastHour int
}

func New(gatewayID, controllerID string, st store.Store, dispatcher Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		gatewayID:    gatewayID,
		controllerID: controllerID,
		store:        st,
		dispatcher:   dispatcher,
		logger:       logger,
		lastHour:     -1,
	}
}

// DoneMask reports which quarter-hours of the current hour have been
// pulled so far.
func (s *Scheduler) DoneMask() uint8 { return s.doneMask }

// RunCycle executes one full pull cycle for the gateway's node list at
// time now, draining cancelSet between nodes if it becomes non-empty.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time, cancelSet CancelSet) error {
	cycleID := CalculateCycleID(now)
	if now.Hour() != s.lastHour {
		s.doneMask = 0
		s.lastHour = now.Hour()
	}

	if err := s.acquireGateway(ctx); err != nil {
		return fmt.Errorf("scheduler: acquire gateway: %w", err)
	}
	defer func() {
		if err := s.store.ReleaseGateway(ctx, s.gatewayID, s.controllerID); err != nil {
			s.logger.Error("scheduler: release gateway failed", "gateway_id", s.gatewayID, "error", err)
		}
	}()

	book, err := pathbook.Load(ctx, s.store, s.gatewayID)
	if err != nil {
		return fmt.Errorf("scheduler: load path book: %w", err)
	}

	s.unsilenceEligible(ctx, book)

	for _, mac := range book.Nodes() {
		if cancelSet != nil && cancelSet.NonEmpty() {
			s.drainCancellations(ctx, cancelSet)
		}

		info, err := s.missingCycleInfo(ctx, mac, cycleID)
		if err != nil {
			s.logger.Error("scheduler: missing-cycle-info failed", "mac", mac, "error", err)
			continue
		}
		s.pullMissing(ctx, mac, cycleID, info)
	}

	s.doneMask |= 1 << quarterWithinHour(cycleID)
	return nil
}

// acquireGateway waits (polling every acquirePollInterval, bounded at
// acquireGatewayTimeout) for the cross-controller sync table to grant
// this controller the gateway.
func (s *Scheduler) acquireGateway(ctx context.Context) error {
	deadline := time.Now().Add(acquireGatewayTimeout)
	for {
		held, err := s.store.AcquireGateway(ctx, s.gatewayID, s.controllerID)
		if err != nil {
			return err
		}
		if held {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gateway %s held by another controller past %s", s.gatewayID, acquireGatewayTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// unsilenceEligible un-silences every currently silenced node, one at a
// time. Eligibility beyond "still on the silenced list" is the FUOTA
// engine's concern (a node stays silenced for the duration of its
// rollout) — see DESIGN.md for why this scheduler pass treats the list
// itself as the eligibility signal.
func (s *Scheduler) unsilenceEligible(ctx context.Context, book *pathbook.Book) {
	silenced, err := s.store.ListSilencedNodes(ctx, s.gatewayID)
	if err != nil {
		s.logger.Error("scheduler: list silenced nodes failed", "gateway_id", s.gatewayID, "error", err)
		return
	}
	for _, node := range silenced {
		if err := s.store.UnsilenceNode(ctx, s.gatewayID, node.MAC); err != nil {
			s.logger.Error("scheduler: unsilence node failed", "mac", node.MAC, "error", err)
		}
	}
}

func (s *Scheduler) missingCycleInfo(ctx context.Context, mac string, cycleID int) (MissingCycleInfo, error) {
	var info MissingCycleInfo

	hasNameplate, err := s.store.HasNamePlateData(ctx, s.gatewayID, mac)
	if err != nil {
		return info, err
	}
	info.MissingNameplate = !hasNameplate
	info.MissingIFV = !IsIFVAvailableForNode(mac)

	for _, id := range LastHourWindow(cycleID) {
		has, err := s.store.HasIPPushForCycle(ctx, s.gatewayID, mac, id)
		if err != nil {
			return info, err
		}
		if !has {
			info.MissingIPCycles = append(info.MissingIPCycles, id)
		}
	}

	if info.MissingBLP, err = notHas(s.store.HasBlockLoadForCycle(ctx, s.gatewayID, mac, cycleID)); err != nil {
		return info, err
	}
	if info.MissingDLP, err = notHas(s.store.HasDailyLoadForCycle(ctx, s.gatewayID, mac, cycleID)); err != nil {
		return info, err
	}
	if info.MissingBHP, err = notHas(s.store.HasHistoryForCycle(ctx, s.gatewayID, mac, cycleID)); err != nil {
		return info, err
	}

	info.Silenced, err = s.store.IsNodeSilenced(ctx, s.gatewayID, mac)
	if err != nil {
		return info, err
	}

	return info, nil
}

func notHas(has bool, err error) (bool, error) { return !has, err }

// pullMissing issues transactions in the priority order Nameplate > IFV >
// IP > DLP > BLP > BHP, since later profiles depend on the meter having
// announced itself. Silenced nodes (mid-FUOTA) are skipped entirely.
func (s *Scheduler) pullMissing(ctx context.Context, mac string, cycleID int, info MissingCycleInfo) {
	if info.Silenced {
		return
	}

	if info.MissingNameplate {
		s.dispatchAndRecord(mac, "nameplate", func() (transactor.Result, error) {
			return s.dispatcher.PullNameplate(ctx, mac)
		})
	}
	if info.MissingIFV {
		s.dispatchAndRecord(mac, "ifv", func() (transactor.Result, error) {
			return s.dispatcher.PullIFV(ctx, mac)
		})
	}
	for _, cid := range info.MissingIPCycles {
		cycle := cid
		s.dispatchAndRecord(mac, "instantaneous", func() (transactor.Result, error) {
			return s.dispatcher.PullInstantaneous(ctx, mac, cycle)
		})
	}
	if info.MissingDLP {
		s.dispatchAndRecord(mac, "daily-load", func() (transactor.Result, error) {
			return s.dispatcher.PullDailyLoad(ctx, mac)
		})
	}
	if info.MissingBLP {
		s.dispatchAndRecord(mac, "block-load", func() (transactor.Result, error) {
			return s.dispatcher.PullBlockLoad(ctx, mac)
		})
	}
	if info.MissingBHP {
		s.dispatchAndRecord(mac, "billing-history", func() (transactor.Result, error) {
			return s.dispatcher.PullBillingHistory(ctx, mac)
		})
	}
}

// dispatchAndRecord issues one transaction and, on failure, records it
// and advances — a transactor failure never blocks the rest of the cycle.
func (s *Scheduler) dispatchAndRecord(mac, profileName string, call func() (transactor.Result, error)) {
	result, err := call()
	if err != nil {
		s.logger.Warn("scheduler: profile pull failed",
			"mac", mac, "profile", profileName, "state", result.State.String(), "error", err)
		return
	}
	s.logger.Debug("scheduler: profile pull succeeded", "mac", mac, "profile", profileName, "state", result.State.String())
}

// drainCancellations transitions every queued cancellation to
// RequestStatusCancelled, per §5's "drained at the top of every ODM
// batch" ordering rule extended to mid-cycle checkpoints.
func (s *Scheduler) drainCancellations(ctx context.Context, cancelSet CancelSet) {
	for _, requestID := range cancelSet.Drain() {
		if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestStatusCancelled, nil); err != nil {
			s.logger.Error("scheduler: record cancellation failed", "request_id", requestID, "error", err)
		}
	}
}
