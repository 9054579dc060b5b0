// Package sim is a paper venue: it acknowledges orders and fills them
// asynchronously at the requested price, pushing status deltas through the
// subscribed callback the way a real connector would. Tests and the demo
// command use it as the execution venue.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/livetrader/broker"
	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/portfolio"
)

var ErrNotConnected = errors.New("paper venue not connected")

type pendingOrder struct {
	ord       order.Order
	cancelled bool
	done      bool
}

// Paper simulates the venue side of the connector contract.
type Paper struct {
	mu        sync.Mutex
	handler   broker.UpdateFunc
	connected bool

	cash      float64
	positions map[string]portfolio.Position

	// FillDelay is how long after acknowledgment the first status delta
	// arrives. PartialSteps > 0 splits the fill into that many
	// PARTIAL_FILLED deltas before the final FILLED.
	FillDelay    time.Duration
	PartialSteps int

	nextVenueID int
	open        map[string]*pendingOrder
	wg          sync.WaitGroup
}

func New(cash float64, positions map[string]portfolio.Position) *Paper {
	return &Paper{
		cash:      cash,
		positions: positions,
		open:      make(map[string]*pendingOrder),
	}
}

func (p *Paper) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *Paper) Disconnect() error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Paper) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Paper) Subscribe(fn broker.UpdateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

func (p *Paper) QueryCash(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return 0, ErrNotConnected
	}
	return p.cash, nil
}

func (p *Paper) QueryPositions(ctx context.Context) (map[string]portfolio.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrNotConnected
	}
	out := make(map[string]portfolio.Position, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = pos
	}
	return out, nil
}

// PlaceOrder acknowledges the order and schedules its fill.
func (p *Paper) PlaceOrder(ctx context.Context, o order.Order) (bool, error) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return false, ErrNotConnected
	}
	if _, exists := p.open[o.ID]; exists {
		p.mu.Unlock()
		return false, nil
	}
	p.nextVenueID++
	o.VenueID = fmt.Sprintf("V%06d", p.nextVenueID)
	po := &pendingOrder{ord: o}
	p.open[o.ID] = po
	delay := p.FillDelay
	steps := p.PartialSteps
	p.mu.Unlock()

	p.wg.Add(1)
	go p.fill(po, delay, steps)
	return true, nil
}

// CancelOrder acknowledges cancellation of a still-open order and emits the
// CANCELLED delta.
func (p *Paper) CancelOrder(ctx context.Context, o order.Order) (bool, error) {
	p.mu.Lock()
	po, ok := p.open[o.ID]
	if !ok || po.done || po.cancelled {
		p.mu.Unlock()
		return false, nil
	}
	po.cancelled = true
	upd := po.ord
	upd.Status = order.Cancelled
	p.mu.Unlock()

	p.emit(upd)
	return true, nil
}

func (p *Paper) fill(po *pendingOrder, delay time.Duration, steps int) {
	defer p.wg.Done()
	if delay > 0 {
		time.Sleep(delay)
	}

	total := po.ord.Volume
	var filled int64
	for i := 1; i <= steps; i++ {
		filled = total * int64(i) / int64(steps+1)
		if filled <= 0 {
			continue
		}
		if !p.step(po, order.PartialFilled, filled) {
			return
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	p.step(po, order.Filled, total)
}

// step emits one status delta unless the order was cancelled meanwhile.
func (p *Paper) step(po *pendingOrder, status order.Status, filled int64) bool {
	p.mu.Lock()
	if po.cancelled {
		p.mu.Unlock()
		return false
	}
	if status == order.Filled {
		po.done = true
	}
	upd := po.ord
	upd.Status = status
	upd.FilledVolume = filled
	upd.FilledPrice = po.ord.Price
	p.mu.Unlock()

	p.emit(upd)
	return true
}

func (p *Paper) emit(o order.Order) {
	p.mu.Lock()
	fn := p.handler
	p.mu.Unlock()
	if fn != nil {
		fn(o)
	}
}
