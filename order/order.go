package order

import (
	"fmt"

	"github.com/rustyeddy/livetrader/pkg/id"
)

// Direction is the side of an order.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Type selects the execution style of an order.
type Type string

const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

// Status tracks the lifecycle of an order.
//
// Locally-created orders start in Pending. Everything after Submitted is
// driven by venue callbacks; Filled, Cancelled and Rejected are terminal.
type Status string

const (
	Pending       Status = "PENDING"
	Submitted     Status = "SUBMITTED"
	PartialFilled Status = "PARTIAL_FILLED"
	Filled        Status = "FILLED"
	Cancelled     Status = "CANCELLED"
	Rejected      Status = "REJECTED"
)

// transitions is the set of legal successor statuses. Anything not listed
// (including every transition out of a terminal status) is illegal.
var transitions = map[Status][]Status{
	Pending:       {Submitted, Rejected},
	Submitted:     {PartialFilled, Filled, Cancelled, Rejected},
	PartialFilled: {PartialFilled, Filled, Cancelled},
}

// Terminal reports whether no further status updates are legal.
func (s Status) Terminal() bool {
	switch s {
	case Filled, Cancelled, Rejected:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal transition.
// Venue callbacks arrive out of order and duplicated; this is the guard.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Order is the unit of trading intent. The ID is assigned locally at
// creation; VenueID is filled in once the venue acknowledges the order.
//
// Orders are mutated in place by whichever component owns them; take a Clone
// when handing one across an ownership boundary.
type Order struct {
	ID           string
	VenueID      string
	Symbol       string
	Direction    Direction
	Type         Type
	Price        float64
	Volume       int64
	FilledPrice  float64
	FilledVolume int64
	Status       Status
}

// New creates a Pending order with a fresh time-sortable ID.
func New(symbol string, dir Direction, typ Type, price float64, volume int64) *Order {
	return &Order{
		ID:        id.New(),
		Symbol:    symbol,
		Direction: dir,
		Type:      typ,
		Price:     price,
		Volume:    volume,
		Status:    Pending,
	}
}

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// UpdateStatus applies a status change together with the fill quantities the
// venue reported alongside it.
func (o *Order) UpdateStatus(s Status, filledVolume int64, filledPrice float64) {
	o.Status = s
	o.FilledVolume = filledVolume
	o.FilledPrice = filledPrice
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %s %s %d @ %.3f [%s]",
		o.ID, o.Direction, o.Symbol, o.Volume, o.Price, o.Status)
}
