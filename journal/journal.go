package journal

import "time"

// FillRecord is one settled fill delta, written as it happens.
type FillRecord struct {
	OrderID     string
	Date        time.Time
	Symbol      string
	Direction   string
	Volume      int64
	Price       float64
	Amount      float64
	Fee         float64
	RealizedPL  float64
	HoldingDays int
}

// EquityRecord is a point-in-time account valuation.
type EquityRecord struct {
	Time          time.Time
	TotalEquity   float64
	TotalCash     float64
	AvailableCash float64
	MarketValue   float64
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}

// Discard is a Journal that drops every record.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordFill(FillRecord) error     { return nil }
func (discard) RecordEquity(EquityRecord) error { return nil }
func (discard) Close() error                    { return nil }
