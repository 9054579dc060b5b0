package portfolio

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rustyeddy/livetrader/order"
)

var (
	ErrDuplicateReservation = errors.New("reservation already exists for order")
	ErrNoPosition           = errors.New("no position for symbol")
)

// ReleaseResult reports what a Release call actually did. Reservations and
// settlements race under duplicated venue callbacks, so callers need to tell
// "released just now" from "someone beat me to it" from "never existed".
type ReleaseResult int

const (
	Released ReleaseResult = iota
	AlreadyReleased
	NeverReserved
)

func (r ReleaseResult) String() string {
	switch r {
	case Released:
		return "released"
	case AlreadyReleased:
		return "already-released"
	case NeverReserved:
		return "never-reserved"
	}
	return "unknown"
}

// reservation is one entry in the reservation journal. For buys it holds
// cash not yet spent by fills; for sells it holds shares not yet delivered.
// Remaining amounts shrink as fill deltas settle; terminal order states
// release whatever is left, so reserved-vs-settled fee differences collapse
// into cash instead of leaking.
type reservation struct {
	ord             order.Order
	remainingCost   float64
	remainingVolume int64
	released        bool
}

// Ledger is the account of record: total cash, positions, and the
// reservation journal. Available cash and available volume are derived from
// totals minus outstanding locks, never stored as second counters.
//
// The Ledger is not internally synchronized; the engine serializes every
// mutating call under its own lock.
type Ledger struct {
	fees      FeeModel
	t1        bool
	totalCash float64

	positions    map[string]*Position
	reservations map[string]*reservation

	log *slog.Logger
}

// NewLedger creates a ledger holding cash and nothing else. With t1 set,
// bought shares stay settlement-locked until the next rollover.
func NewLedger(cash float64, fees FeeModel, t1 bool, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		fees:         fees,
		t1:           t1,
		totalCash:    cash,
		positions:    make(map[string]*Position),
		reservations: make(map[string]*reservation),
		log:          log,
	}
}

func (l *Ledger) Fees() FeeModel { return l.fees }

func (l *Ledger) TotalCash() float64 { return l.totalCash }

// AvailableCash is total cash minus every outstanding buy reservation.
func (l *Ledger) AvailableCash() float64 {
	cash := l.totalCash
	for _, r := range l.reservations {
		if !r.released && r.ord.Direction == order.Buy {
			cash -= r.remainingCost
		}
	}
	return cash
}

// AvailableVolume is the sellable share count: total minus the
// settlement-cycle lock minus outstanding sell reservations.
func (l *Ledger) AvailableVolume(symbol string) int64 {
	pos, ok := l.positions[symbol]
	if !ok {
		return 0
	}
	avail := pos.TotalVolume - pos.SettlementLocked
	for _, r := range l.reservations {
		if !r.released && r.ord.Direction == order.Sell && r.ord.Symbol == symbol {
			avail -= r.remainingVolume
		}
	}
	return avail
}

func (l *Ledger) TotalMarketValue() float64 {
	var mv float64
	for _, p := range l.positions {
		mv += p.MarketValue
	}
	return mv
}

// TotalEquity is total cash plus position market value.
func (l *Ledger) TotalEquity() float64 {
	return l.totalCash + l.TotalMarketValue()
}

// Position returns a view of one holding.
func (l *Ledger) Position(symbol string) (PositionView, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return PositionView{}, false
	}
	return l.viewOf(p), true
}

// Symbols lists held symbols in ascending order.
func (l *Ledger) Symbols() []string {
	syms := make([]string, 0, len(l.positions))
	for s := range l.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Check is a pure admission predicate: enough available cash for a buy,
// enough available shares for a sell. It never mutates state; a false
// result is a normal outcome, not an error.
func (l *Ledger) Check(o *order.Order) bool {
	switch o.Direction {
	case order.Buy:
		cost := l.fees.BuyCost(o.Price, o.Volume)
		if l.AvailableCash() < cost {
			l.log.Warn("insufficient cash for buy",
				"symbol", o.Symbol, "volume", o.Volume, "price", o.Price,
				"cost", cost, "available", l.AvailableCash())
			return false
		}
		return true
	case order.Sell:
		if _, ok := l.positions[o.Symbol]; !ok {
			l.log.Warn("sell of unheld symbol", "symbol", o.Symbol)
			return false
		}
		if avail := l.AvailableVolume(o.Symbol); avail < o.Volume {
			l.log.Warn("insufficient available volume for sell",
				"symbol", o.Symbol, "available", avail, "requested", o.Volume)
			return false
		}
		return true
	}
	return false
}

// Freeze records a reservation against the order: cash for buys, shares for
// sells. Call only after Check has passed. Freezing the same order twice is
// an error; so is a sell freeze against a vanished position.
func (l *Ledger) Freeze(o *order.Order) error {
	if _, exists := l.reservations[o.ID]; exists {
		return fmt.Errorf("freeze %s: %w", o.ID, ErrDuplicateReservation)
	}

	res := &reservation{ord: *o, remainingVolume: o.Volume}
	switch o.Direction {
	case order.Buy:
		res.remainingCost = l.fees.BuyCost(o.Price, o.Volume)
		l.log.Info("froze cash for order",
			"order", o.ID, "symbol", o.Symbol, "cost", res.remainingCost,
			"available", l.AvailableCash()-res.remainingCost)
	case order.Sell:
		if _, ok := l.positions[o.Symbol]; !ok {
			return fmt.Errorf("freeze %s: %w: %s", o.ID, ErrNoPosition, o.Symbol)
		}
		l.log.Info("froze shares for order",
			"order", o.ID, "symbol", o.Symbol, "volume", o.Volume,
			"available", l.AvailableVolume(o.Symbol)-o.Volume)
	}
	l.reservations[o.ID] = res
	return nil
}

// Release frees whatever remains of the order's reservation. It is
// idempotent: duplicate releases and releases for unknown IDs report what
// happened instead of corrupting the journal. Released entries are kept
// (flagged) until the next rollover so duplicates stay distinguishable from
// orphans.
func (l *Ledger) Release(orderID string) ReleaseResult {
	res, ok := l.reservations[orderID]
	if !ok {
		l.log.Warn("release of unknown reservation", "order", orderID)
		return NeverReserved
	}
	if res.released {
		l.log.Debug("release of already-released reservation", "order", orderID)
		return AlreadyReleased
	}
	res.released = true
	res.remainingCost = 0
	res.remainingVolume = 0
	l.log.Info("released reservation", "order", orderID,
		"symbol", res.ord.Symbol, "direction", res.ord.Direction)
	return Released
}

// Settle applies one fill delta to real state: cash and cost basis for
// buys, cash and share count for sells. volume and price are the fill's,
// not the reservation's; the difference between reserved and settled fees
// is absorbed into cash by design. The matching slice of the reservation is
// released in the same step.
func (l *Ledger) Settle(o order.Order, volume int64, price float64, date time.Time) error {
	if volume <= 0 {
		return fmt.Errorf("settle %s: non-positive volume %d", o.ID, volume)
	}
	fee := l.fees.Fee(o.Direction, price, volume)

	switch o.Direction {
	case order.Buy:
		cost := price*float64(volume) + fee
		l.totalCash -= cost
		pos, ok := l.positions[o.Symbol]
		if !ok {
			pos = &Position{Symbol: o.Symbol}
			l.positions[o.Symbol] = pos
		}
		pos.addLot(volume, price, date, l.t1)
	case order.Sell:
		pos, ok := l.positions[o.Symbol]
		if !ok {
			return fmt.Errorf("settle %s: %w: %s", o.ID, ErrNoPosition, o.Symbol)
		}
		proceeds := price*float64(volume) - fee
		l.totalCash += proceeds
		pos.reduce(volume, price)
		if pos.TotalVolume <= 0 {
			delete(l.positions, o.Symbol)
		}
	default:
		return fmt.Errorf("settle %s: unknown direction %q", o.ID, o.Direction)
	}

	l.releaseSlice(o.ID, volume)
	l.log.Info("settled fill",
		"order", o.ID, "symbol", o.Symbol, "direction", o.Direction,
		"volume", volume, "price", price, "fee", fee,
		"available_cash", l.AvailableCash())
	return nil
}

// releaseSlice shrinks a reservation by the settled volume, releasing the
// proportional share of reserved cash for buys. Exact by construction when
// the last delta lands: the final slice is whatever remains.
func (l *Ledger) releaseSlice(orderID string, volume int64) {
	res, ok := l.reservations[orderID]
	if !ok || res.released {
		// A fill can race a prior release under duplicated callbacks.
		// Real state was already mutated above; nothing left to free.
		l.log.Warn("settled fill without live reservation", "order", orderID)
		return
	}
	if volume >= res.remainingVolume {
		res.remainingCost = 0
		res.remainingVolume = 0
		res.released = true
		return
	}
	if res.ord.Direction == order.Buy {
		slice := res.remainingCost * float64(volume) / float64(res.remainingVolume)
		res.remainingCost -= slice
	}
	res.remainingVolume -= volume
}

// ReleaseOrderLocks drops the whole reservation journal, restoring every
// order-held lock. Settlement-cycle locks are untouched.
func (l *Ledger) ReleaseOrderLocks() {
	n := len(l.reservations)
	l.reservations = make(map[string]*reservation)
	l.log.Info("released all order reservations", "count", n)
}

// ReleaseSettlementLocks clears the T+1 lock on every position, making
// yesterday's buys sellable. Order reservations are untouched.
func (l *Ledger) ReleaseSettlementLocks() {
	for _, p := range l.positions {
		p.SettlementLocked = 0
	}
	l.log.Info("released settlement locks", "positions", len(l.positions))
}

// Mark re-prices every position. priceOf returns (price, ok); positions
// without a price keep their last mark.
func (l *Ledger) Mark(priceOf func(symbol string) (float64, bool)) {
	for sym, p := range l.positions {
		price, ok := priceOf(sym)
		if !ok || price <= 0 {
			l.log.Warn("no price for symbol, keeping last mark", "symbol", sym)
			continue
		}
		p.mark(price)
	}
}

// SetCash overwrites total cash from an authoritative venue figure.
func (l *Ledger) SetCash(cash float64) {
	l.log.Info("cash overwritten", "old", l.totalCash, "new", cash)
	l.totalCash = cash
}

// OverwritePositions replaces the position map with venue-reported truth.
// An empty input clears local holdings.
func (l *Ledger) OverwritePositions(positions map[string]Position) {
	l.positions = make(map[string]*Position, len(positions))
	if len(positions) == 0 {
		l.log.Info("no positions reported, cleared local holdings")
		return
	}
	for sym, p := range positions {
		cp := p
		cp.Symbol = sym
		l.positions[sym] = &cp
	}
	l.log.Info("positions overwritten", "count", len(positions))
}

// View returns a consistent copy of cash and positions, sorted by symbol.
func (l *Ledger) View() View {
	v := View{
		AvailableCash: l.AvailableCash(),
		TotalCash:     l.totalCash,
		Positions:     make([]PositionView, 0, len(l.positions)),
	}
	for _, sym := range l.Symbols() {
		v.Positions = append(v.Positions, l.viewOf(l.positions[sym]))
	}
	return v
}

// Restore replaces cash and positions from a snapshot view. Reservations
// are never persisted (open orders are cancelled before session-end saves),
// so the view's unavailable volume is restored as a settlement lock.
func (l *Ledger) Restore(v View) {
	if v.AvailableCash != v.TotalCash {
		l.log.Warn("snapshot carries frozen cash, restoring total only",
			"available", v.AvailableCash, "total", v.TotalCash)
	}
	l.totalCash = v.TotalCash
	l.positions = make(map[string]*Position, len(v.Positions))
	l.reservations = make(map[string]*reservation)
	for _, pv := range v.Positions {
		l.positions[pv.Symbol] = &Position{
			Symbol:           pv.Symbol,
			TotalVolume:      pv.TotalVolume,
			SettlementLocked: pv.TotalVolume - pv.AvailableVolume,
			AvgPrice:         pv.AvgPrice,
			CurPrice:         pv.CurPrice,
			MarketValue:      pv.MarketValue,
			FloatPnL:         pv.FloatPnL,
			EntryDate:        pv.EntryDate,
		}
	}
	l.log.Info("ledger restored", "total_cash", l.totalCash, "positions", len(l.positions))
}

func (l *Ledger) viewOf(p *Position) PositionView {
	return PositionView{
		Symbol:          p.Symbol,
		TotalVolume:     p.TotalVolume,
		AvailableVolume: l.AvailableVolume(p.Symbol),
		AvgPrice:        p.AvgPrice,
		CurPrice:        p.CurPrice,
		MarketValue:     p.MarketValue,
		FloatPnL:        p.FloatPnL,
		EntryDate:       p.EntryDate,
	}
}
