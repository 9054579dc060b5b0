// Package engine reconciles local trading intent with venue-confirmed
// truth. It owns the single mutual-exclusion domain shared by the ledger
// and the order maps: every mutating operation runs under one lock, and the
// lock is never held across a blocking wait or a venue call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/livetrader/broker"
	"github.com/rustyeddy/livetrader/journal"
	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/portfolio"
	"github.com/rustyeddy/livetrader/snapshot"
)

// Config holds the engine's timing and risk parameters.
type Config struct {
	// PollInterval is the completion-wait check interval.
	PollInterval time.Duration
	// MaxWait bounds AwaitCompletion when the engine waits on its own
	// behalf (rebalancing).
	MaxWait time.Duration
	// WatchdogInterval is how often venue connectivity is checked;
	// zero disables the watchdog.
	WatchdogInterval time.Duration
	// MaxExposure caps market value / equity for rebalancing.
	MaxExposure float64
}

// Engine drives the order lifecycle: validate against the ledger, freeze,
// dispatch to the venue, and apply asynchronous confirmations back to the
// ledger. local holds submission intent keyed by order ID; confirmed holds
// the venue's authoritative view under the same keys once linked.
type Engine struct {
	mu        sync.Mutex
	ledger    *portfolio.Ledger
	venue     broker.Venue
	journal   journal.Journal
	snapshots *snapshot.Store
	cfg       Config
	log       *slog.Logger

	local     map[string]*order.Order
	confirmed map[string]*order.Order
	current   time.Time // current trading date

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(ledger *portfolio.Ledger, venue broker.Venue, j journal.Journal, snaps *snapshot.Store, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if j == nil {
		j = journal.Discard
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Engine{
		ledger:    ledger,
		venue:     venue,
		journal:   j,
		snapshots: snaps,
		cfg:       cfg,
		log:       log,
		local:     make(map[string]*order.Order),
		confirmed: make(map[string]*order.Order),
		current:   time.Now(),
	}
}

// Ledger exposes the account of record for read access. Mutations go
// through engine operations only.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// CurrentDate returns the engine's trading date.
func (e *Engine) CurrentDate() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// LocalOrder returns a copy of a locally-issued order.
func (e *Engine) LocalOrder(id string) (order.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.local[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

// ConfirmedOrder returns a copy of the venue-confirmed record.
func (e *Engine) ConfirmedOrder(id string) (order.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.confirmed[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

// Start recovers state from the latest snapshot, connects the venue and
// begins liveness monitoring.
func (e *Engine) Start() error {
	if e.snapshots != nil {
		v, err := e.snapshots.Load("", true)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if v != nil {
			e.mu.Lock()
			e.ledger.Restore(*v)
			e.mu.Unlock()
		}
	}
	e.venue.Subscribe(e.OnVenueUpdate)
	if err := e.venue.Start(); err != nil {
		return fmt.Errorf("start venue: %w", err)
	}
	e.startWatchdog()
	e.log.Info("engine started")
	return nil
}

// Close persists a final snapshot and disconnects. The snapshot error, if
// any, is returned after the venue is shut down.
func (e *Engine) Close() error {
	e.stopWatchdog()
	var saveErr error
	if e.snapshots != nil {
		if _, err := e.SaveSnapshot(""); err != nil {
			saveErr = err
		}
	}
	if err := e.venue.Disconnect(); err != nil {
		e.log.Error("venue disconnect failed", "err", err)
	}
	e.log.Info("engine closed")
	return saveErr
}

// SaveSnapshot writes the current ledger state and returns the file path.
func (e *Engine) SaveSnapshot(tag string) (string, error) {
	e.mu.Lock()
	view := e.ledger.View()
	e.mu.Unlock()
	path, err := e.snapshots.Save(view, tag)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return path, nil
}

// Submit validates an order against the ledger and freezes its resources.
// A false result means the check failed and nothing was mutated; an error
// means the reservation itself faulted.
func (e *Engine) Submit(o *order.Order) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitLocked(o)
}

func (e *Engine) submitLocked(o *order.Order) (bool, error) {
	if !e.ledger.Check(o) {
		return false, nil
	}
	if err := e.ledger.Freeze(o); err != nil {
		return false, fmt.Errorf("submit %s: %w", o.ID, err)
	}
	c := o.Clone()
	c.Status = order.Pending
	e.local[c.ID] = c
	e.log.Info("queued order",
		"order", c.ID, "symbol", c.Symbol, "direction", c.Direction,
		"volume", c.Volume, "price", c.Price)
	return true, nil
}

// Dispatch pushes every Pending local order to the venue. Acknowledged
// orders become Submitted; immediate rejections run through the same
// release path as venue-reported rejections. Returns the number placed.
func (e *Engine) Dispatch(ctx context.Context) int {
	e.mu.Lock()
	batch := make([]order.Order, 0, len(e.local))
	for _, o := range e.local {
		if o.Status == order.Pending {
			batch = append(batch, *o)
		}
	}
	e.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })

	placed := 0
	for _, o := range batch {
		ack, err := e.venue.PlaceOrder(ctx, o)

		e.mu.Lock()
		lo, ok := e.local[o.ID]
		if !ok || lo.Status != order.Pending {
			e.mu.Unlock()
			continue
		}
		if err != nil || !ack {
			e.log.Warn("order rejected at placement", "order", o.ID, "err", err)
			e.rejectLocked(lo)
		} else {
			lo.Status = order.Submitted
			placed++
		}
		e.mu.Unlock()
	}
	e.log.Info("dispatched orders", "placed", placed, "batch", len(batch))
	return placed
}

// rejectLocked marks a local order rejected, mirrors it into the confirmed
// map and releases its reservation — the same terminal handling a
// venue-reported REJECTED gets.
func (e *Engine) rejectLocked(lo *order.Order) {
	lo.Status = order.Rejected
	if _, exists := e.confirmed[lo.ID]; !exists {
		e.confirmed[lo.ID] = lo.Clone()
	}
	e.ledger.Release(lo.ID)
}

// AwaitCompletion polls until every Submitted local order has a confirmed
// record in a terminal state, or until maxWait elapses. The lock is
// re-acquired for each check and released over every sleep. A timeout is
// not an error: the method logs a warning and reports false, and the caller
// must not treat either return as proof of settlement.
func (e *Engine) AwaitCompletion(ctx context.Context, maxWait time.Duration) bool {
	iters := int(maxWait / e.cfg.PollInterval)
	if iters < 1 {
		iters = 1
	}
	start := time.Now()
	for i := 0; i < iters; i++ {
		e.mu.Lock()
		done := e.submittedSettledLocked()
		e.mu.Unlock()
		if done {
			e.log.Info("all submitted orders settled", "elapsed", time.Since(start))
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.cfg.PollInterval):
		}
	}
	e.log.Warn("completion wait timed out", "elapsed", time.Since(start))
	return false
}

func (e *Engine) submittedSettledLocked() bool {
	for id, o := range e.local {
		if o.Status != order.Submitted {
			continue
		}
		conf, ok := e.confirmed[id]
		if !ok || !conf.Status.Terminal() {
			return false
		}
	}
	return true
}

// CancelOpen asks the venue to cancel every confirmed order still
// Submitted. Acknowledged cancellations move the confirmed record to
// Cancelled and release the matching reservation. Returns the number
// cancelled.
func (e *Engine) CancelOpen(ctx context.Context) int {
	e.mu.Lock()
	batch := make([]order.Order, 0, len(e.confirmed))
	for _, c := range e.confirmed {
		if c.Status == order.Submitted {
			batch = append(batch, *c)
		}
	}
	e.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })

	cancelled := 0
	for _, c := range batch {
		ack, err := e.venue.CancelOrder(ctx, c)
		if err != nil || !ack {
			e.log.Warn("cancel not acknowledged", "order", c.ID, "err", err)
			continue
		}
		e.mu.Lock()
		conf, ok := e.confirmed[c.ID]
		// A fill may have landed while the cancel was in flight; the
		// transition guard decides.
		if ok && conf.Status.CanTransition(order.Cancelled) {
			conf.Status = order.Cancelled
			e.ledger.Release(conf.ID)
			cancelled++
		}
		e.mu.Unlock()
	}
	e.log.Info("cancelled open orders", "count", cancelled)
	return cancelled
}

// Rollover performs the daily transition: clears both day-scoped order maps,
// releases order reservations and settlement-cycle locks, and advances the
// trading date.
func (e *Engine) Rollover(date time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.local = make(map[string]*order.Order)
	e.confirmed = make(map[string]*order.Order)
	e.ledger.ReleaseOrderLocks()
	e.ledger.ReleaseSettlementLocks()
	e.current = date
	e.log.Info("rolled over trading date", "date", date.Format("2006-01-02"))
}

// SyncAccount overwrites local cash and positions with venue-reported
// truth.
func (e *Engine) SyncAccount(ctx context.Context) error {
	cash, err := e.venue.QueryCash(ctx)
	if err != nil {
		return fmt.Errorf("sync account: query cash: %w", err)
	}
	positions, err := e.venue.QueryPositions(ctx)
	if err != nil {
		return fmt.Errorf("sync account: query positions: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.SetCash(cash)
	e.ledger.OverwritePositions(positions)
	return nil
}

// MarkPrices re-prices every position and records an equity snapshot.
func (e *Engine) MarkPrices(priceOf func(symbol string) (float64, bool)) error {
	e.mu.Lock()
	e.ledger.Mark(priceOf)
	rec := journal.EquityRecord{
		Time:          time.Now(),
		TotalEquity:   e.ledger.TotalEquity(),
		TotalCash:     e.ledger.TotalCash(),
		AvailableCash: e.ledger.AvailableCash(),
		MarketValue:   e.ledger.TotalMarketValue(),
	}
	e.mu.Unlock()

	if err := e.journal.RecordEquity(rec); err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

// PostMarket is the session-end routine: cancel whatever is still open and
// persist a snapshot.
func (e *Engine) PostMarket(ctx context.Context) error {
	e.CancelOpen(ctx)
	if e.snapshots == nil {
		return nil
	}
	_, err := e.SaveSnapshot("")
	return err
}
