package portfolio

import (
	"math"

	"github.com/rustyeddy/livetrader/order"
)

// FeeModel computes transaction costs. Commission applies to both sides and
// is floored at MinCommission; stamp duty applies to sells only.
type FeeModel struct {
	CommissionRate float64
	StampDutyRate  float64
	MinCommission  float64

	// SlippageRate is carried from configuration for future fee modeling;
	// it does not enter the current formulas.
	SlippageRate float64
}

// Fee returns the total fee for trading volume shares at price, rounded to
// two decimals.
func (f FeeModel) Fee(dir order.Direction, price float64, volume int64) float64 {
	amount := price * float64(volume)
	commission := amount * f.CommissionRate
	if commission < f.MinCommission {
		commission = f.MinCommission
	}
	stamp := 0.0
	if dir == order.Sell {
		stamp = amount * f.StampDutyRate
	}
	return round2(commission + stamp)
}

// BuyCost returns the total cash needed to buy volume shares at price,
// fees included. Freeze and Check must agree on this number, so both call
// here.
func (f FeeModel) BuyCost(price float64, volume int64) float64 {
	return price*float64(volume) + f.Fee(order.Buy, price, volume)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
