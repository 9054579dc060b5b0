package engine

import (
	"github.com/rustyeddy/livetrader/journal"
	"github.com/rustyeddy/livetrader/order"
)

// OnVenueUpdate is the single ingress point for asynchronous venue
// callbacks. It must never block: the lock is taken briefly, state is
// reconciled, and control returns to the connector.
//
// Updates for IDs unknown to both maps are dropped. The first sighting of a
// known local order creates its confirmed record; after that, every update
// must be a legal successor of the confirmed status or it is dropped — the
// guard against duplicated and reordered delivery.
func (e *Engine) OnVenueUpdate(u order.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	conf, hasConf := e.confirmed[u.ID]
	_, hasLocal := e.local[u.ID]
	if !hasConf && !hasLocal {
		e.log.Warn("update for unknown order dropped", "order", u.ID, "status", u.Status)
		return
	}

	var prevFilled int64
	if hasConf {
		if !conf.Status.CanTransition(u.Status) {
			e.log.Warn("illegal status transition dropped",
				"order", u.ID, "from", conf.Status, "to", u.Status)
			return
		}
		prevFilled = conf.FilledVolume
		old := conf.Status
		conf.UpdateStatus(u.Status, u.FilledVolume, u.FilledPrice)
		if u.VenueID != "" {
			conf.VenueID = u.VenueID
		}
		e.log.Info("confirmed order updated",
			"order", u.ID, "venue_order", conf.VenueID,
			"from", old, "to", u.Status,
			"filled", u.FilledVolume, "of", conf.Volume, "price", u.FilledPrice)
	} else {
		conf = u.Clone()
		e.confirmed[u.ID] = conf
		e.log.Info("confirmed order created",
			"order", u.ID, "venue_order", u.VenueID, "status", u.Status,
			"filled", u.FilledVolume, "of", u.Volume)
	}

	switch conf.Status {
	case order.PartialFilled:
		e.settleLocked(conf, prevFilled)
	case order.Filled:
		e.settleLocked(conf, prevFilled)
		e.ledger.Release(conf.ID)
	case order.Rejected, order.Cancelled:
		e.ledger.Release(conf.ID)
	}
}

// settleLocked applies the fill delta since the previous update, so
// successive partial fills each settle exactly once. Realized P&L and
// holding period for sells are taken from the position before settlement
// mutates it.
func (e *Engine) settleLocked(conf *order.Order, prevFilled int64) {
	delta := conf.FilledVolume - prevFilled
	if delta <= 0 {
		e.log.Debug("update carried no fill delta", "order", conf.ID)
		return
	}

	var pnl float64
	holdingDays := 0
	if conf.Direction == order.Sell {
		if pos, ok := e.ledger.Position(conf.Symbol); ok {
			pnl = (conf.FilledPrice - pos.AvgPrice) * float64(delta)
			if !pos.EntryDate.IsZero() {
				holdingDays = int(e.current.Sub(pos.EntryDate).Hours()/24) + 1
			}
		}
	}

	if err := e.ledger.Settle(*conf, delta, conf.FilledPrice, e.current); err != nil {
		e.log.Error("settlement failed", "order", conf.ID, "err", err)
		return
	}

	fee := e.ledger.Fees().Fee(conf.Direction, conf.FilledPrice, delta)
	rec := journal.FillRecord{
		OrderID:     conf.ID,
		Date:        e.current,
		Symbol:      conf.Symbol,
		Direction:   string(conf.Direction),
		Volume:      delta,
		Price:       conf.FilledPrice,
		Amount:      conf.FilledPrice * float64(delta),
		Fee:         fee,
		RealizedPL:  pnl,
		HoldingDays: holdingDays,
	}
	if err := e.journal.RecordFill(rec); err != nil {
		e.log.Error("fill record failed", "order", conf.ID, "err", err)
	}
}
