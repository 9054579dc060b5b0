package portfolio

import "time"

// Position is one holding. TotalVolume is everything owned;
// SettlementLocked is the slice bought intraday that T+1 rules keep
// unsellable until the next rollover. Order reservations are tracked in the
// ledger's reservation journal, not here, so available volume is always
// derived rather than a second mutable counter.
type Position struct {
	Symbol           string
	TotalVolume      int64
	SettlementLocked int64
	AvgPrice         float64
	CurPrice         float64
	MarketValue      float64
	FloatPnL         float64
	EntryDate        time.Time
}

// addLot folds a buy fill into the weighted-average cost basis.
func (p *Position) addLot(volume int64, price float64, entry time.Time, lockSettlement bool) {
	oldVolume := p.TotalVolume
	p.AvgPrice = (float64(oldVolume)*p.AvgPrice + float64(volume)*price) / float64(oldVolume+volume)
	p.TotalVolume += volume
	if lockSettlement {
		p.SettlementLocked += volume
	}
	p.EntryDate = entry
	p.mark(price)
}

// reduce removes sold shares. The caller deletes the position once
// TotalVolume reaches zero.
func (p *Position) reduce(volume int64, price float64) {
	p.TotalVolume -= volume
	p.mark(price)
}

// mark updates the derived valuation fields from a new price.
func (p *Position) mark(price float64) {
	p.CurPrice = price
	p.MarketValue = float64(p.TotalVolume) * price
	p.FloatPnL = float64(p.TotalVolume) * (price - p.AvgPrice)
}

// PositionView is a read-only copy of a position with the derived available
// volume filled in. Snapshots, the rebalance planner and display code all
// consume views so they can never corrupt ledger state.
type PositionView struct {
	Symbol          string
	TotalVolume     int64
	AvailableVolume int64
	AvgPrice        float64
	CurPrice        float64
	MarketValue     float64
	FloatPnL        float64
	EntryDate       time.Time
}

// View is a consistent copy of the ledger's cash and positions.
type View struct {
	AvailableCash float64
	TotalCash     float64
	Positions     []PositionView
}
