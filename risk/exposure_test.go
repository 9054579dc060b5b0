package risk

import (
	"testing"

	"github.com/rustyeddy/livetrader/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pv(symbol string, volume, available int64, price float64) portfolio.PositionView {
	return portfolio.PositionView{
		Symbol:          symbol,
		TotalVolume:     volume,
		AvailableVolume: available,
		CurPrice:        price,
		MarketValue:     float64(volume) * price,
	}
}

func TestPlanWithinTargetNoOrders(t *testing.T) {
	t.Parallel()

	positions := []portfolio.PositionView{pv("600000", 10000, 10000, 10)}
	plan, err := PlanExposureCut(positions, 1000000, 0.80)

	require.NoError(t, err)
	assert.Zero(t, plan.Excess)
	assert.Empty(t, plan.Orders)
	assert.InDelta(t, 0.10, plan.CurrentRatio, 1e-9)
}

func TestPlanProportionalAllocation(t *testing.T) {
	t.Parallel()

	// MV 700k + 300k = 1M against 800k equity: ratio 1.25, target 0.80
	// means shedding 1,000,000 - 640,000 = 360,000.
	positions := []portfolio.PositionView{
		pv("600000", 70000, 70000, 10), // 700k
		pv("000001", 30000, 30000, 10), // 300k
	}
	plan, err := PlanExposureCut(positions, 800000, 0.80)
	require.NoError(t, err)

	assert.InDelta(t, 1.25, plan.CurrentRatio, 1e-9)
	assert.InDelta(t, 360000, plan.Excess, 1e-9)
	require.Len(t, plan.Orders, 2)

	// 70% of the excess comes out of the larger position: 252,000 at
	// price 10 is exactly 25,200 shares, a whole lot count.
	assert.Equal(t, "600000", plan.Orders[0].Symbol)
	assert.Equal(t, int64(25200), plan.Orders[0].Volume)
	assert.Equal(t, "000001", plan.Orders[1].Symbol)
	assert.Equal(t, int64(10800), plan.Orders[1].Volume)

	assert.InDelta(t, 360000, plan.Achieved, 1e-9)
	assert.InDelta(t, 0, plan.Remaining(), 1e-9)
}

func TestPlanRoundsLotsUp(t *testing.T) {
	t.Parallel()

	// Excess 50,000 at price 17: 2941.2 shares -> 30 lots (3000), never 29.
	positions := []portfolio.PositionView{pv("600000", 50000, 50000, 17)}
	equity := positions[0].MarketValue / 1.0 // ratio 1.0
	target := (positions[0].MarketValue - 50000) / equity

	plan, err := PlanExposureCut(positions, equity, target)
	require.NoError(t, err)
	require.Len(t, plan.Orders, 1)

	assert.Equal(t, int64(3000), plan.Orders[0].Volume)
	assert.GreaterOrEqual(t, plan.Achieved, plan.Excess)
}

func TestPlanCapsAtAvailableVolume(t *testing.T) {
	t.Parallel()

	// Only 500 shares are sellable; the plan cannot exceed them even
	// though the excess asks for more.
	positions := []portfolio.PositionView{pv("600000", 50000, 500, 10)}
	plan, err := PlanExposureCut(positions, 400000, 0.80)
	require.NoError(t, err)

	require.Len(t, plan.Orders, 1)
	assert.Equal(t, int64(500), plan.Orders[0].Volume)
	assert.Greater(t, plan.Remaining(), 0.0)
}

func TestPlanSkipsSubLotPositions(t *testing.T) {
	t.Parallel()

	positions := []portfolio.PositionView{
		pv("600000", 50000, 50000, 10),
		pv("000001", 50, 50, 10), // under one lot, unsellable
	}
	plan, err := PlanExposureCut(positions, 400000, 0.60)
	require.NoError(t, err)

	for _, o := range plan.Orders {
		assert.NotEqual(t, "000001", o.Symbol)
	}
}

func TestPlanDeterministicTieBreak(t *testing.T) {
	t.Parallel()

	// Equal market values: ordering falls back to symbol ascending.
	positions := []portfolio.PositionView{
		pv("600519", 10000, 10000, 10),
		pv("000001", 10000, 10000, 10),
	}
	plan, err := PlanExposureCut(positions, 100000, 0.50)
	require.NoError(t, err)
	require.Len(t, plan.Orders, 2)
	assert.Equal(t, "000001", plan.Orders[0].Symbol)
	assert.Equal(t, "600519", plan.Orders[1].Symbol)
}

func TestPlanNonPositiveEquity(t *testing.T) {
	t.Parallel()

	_, err := PlanExposureCut(nil, 0, 0.80)
	assert.ErrorIs(t, err, ErrNonPositiveEquity)

	_, err = PlanExposureCut(nil, -100, 0.80)
	assert.ErrorIs(t, err, ErrNonPositiveEquity)
}

func TestPlanEmptyPortfolio(t *testing.T) {
	t.Parallel()

	plan, err := PlanExposureCut(nil, 100000, 0.80)
	require.NoError(t, err)
	assert.Zero(t, plan.CurrentRatio)
	assert.Empty(t, plan.Orders)
}
