package risk

import (
	"errors"
	"sort"

	"github.com/rustyeddy/livetrader/portfolio"
)

// RoundLot is the minimum tradable share increment.
const RoundLot = 100

var ErrNonPositiveEquity = errors.New("exposure ratio undefined for non-positive equity")

// Policy holds portfolio-level risk limits.
type Policy struct {
	// MaxPortfolioExposure caps market value / equity. 0.80 means at most
	// 80% of equity may be held as positions.
	MaxPortfolioExposure float64
}

// SellPlan is one corrective order the planner asks for.
type SellPlan struct {
	Symbol string
	Price  float64
	Volume int64
}

// Plan is the outcome of an exposure evaluation.
type Plan struct {
	CurrentRatio float64
	Excess       float64 // market value to shed; 0 when within target
	Achieved     float64 // market value the planned sells would shed
	Orders       []SellPlan
}

// Remaining is the excess the planned orders do not cover. A positive
// remainder is normal when positions lack available round lots; the caller
// logs it and moves on rather than retrying.
func (p Plan) Remaining() float64 {
	return p.Excess - p.Achieved
}

// PlanExposureCut derives the sell orders needed to bring market value back
// under target×equity. Pure: it reads position views and returns a plan;
// constructing and submitting the orders is the caller's job.
//
// Each position is allocated a share of the excess proportional to its share
// of total market value, converted to a round-lot count rounded up (the
// correction never undershoots by rounding), then capped at the position's
// available volume. Sub-lot results are skipped.
func PlanExposureCut(positions []portfolio.PositionView, equity, target float64) (Plan, error) {
	if equity <= 0 {
		return Plan{}, ErrNonPositiveEquity
	}

	var totalMV float64
	for _, p := range positions {
		totalMV += p.MarketValue
	}

	plan := Plan{CurrentRatio: totalMV / equity}
	if plan.CurrentRatio <= target {
		return plan, nil
	}
	plan.Excess = totalMV - target*equity

	// Largest market value first; symbol breaks ties so the plan is
	// deterministic.
	sorted := make([]portfolio.PositionView, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MarketValue != sorted[j].MarketValue {
			return sorted[i].MarketValue > sorted[j].MarketValue
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	remaining := plan.Excess
	for _, pos := range sorted {
		if remaining <= 0 {
			break
		}
		if pos.CurPrice <= 0 {
			continue
		}

		sellMV := plan.Excess * (pos.MarketValue / totalMV)
		lots := int64(sellMV / (pos.CurPrice * RoundLot))
		if float64(lots)*pos.CurPrice*RoundLot < sellMV {
			lots++ // round up to the next lot
		}
		volume := lots * RoundLot
		if volume > pos.AvailableVolume {
			volume = pos.AvailableVolume
		}
		if volume < RoundLot {
			continue
		}

		plan.Orders = append(plan.Orders, SellPlan{
			Symbol: pos.Symbol,
			Price:  pos.CurPrice,
			Volume: volume,
		})
		shed := float64(volume) * pos.CurPrice
		plan.Achieved += shed
		remaining -= shed
	}
	return plan, nil
}
