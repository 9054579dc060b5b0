package engine

import (
	"context"
	"fmt"

	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/risk"
)

// RebalanceExposure brings market value back under the configured exposure
// cap by submitting corrective market sells, then dispatches them and waits
// (best-effort, bounded) for settlement. A shortfall against the target is
// logged and accepted; the rebalance does not retry within one call.
func (e *Engine) RebalanceExposure(ctx context.Context) error {
	e.mu.Lock()
	view := e.ledger.View()
	equity := e.ledger.TotalEquity()

	plan, err := risk.PlanExposureCut(view.Positions, equity, e.cfg.MaxExposure)
	if err != nil {
		e.mu.Unlock()
		e.log.Warn("exposure rebalance skipped", "err", err, "equity", equity)
		return nil
	}
	if plan.Excess <= 0 {
		e.mu.Unlock()
		e.log.Info("exposure within target",
			"ratio", plan.CurrentRatio, "target", e.cfg.MaxExposure)
		return nil
	}
	e.log.Info("rebalancing exposure",
		"ratio", plan.CurrentRatio, "target", e.cfg.MaxExposure, "excess", plan.Excess)

	submitted := 0
	achieved := 0.0
	for _, sp := range plan.Orders {
		o := order.New(sp.Symbol, order.Sell, order.Market, sp.Price, sp.Volume)
		ok, err := e.submitLocked(o)
		if err != nil {
			e.mu.Unlock()
			return fmt.Errorf("rebalance: %w", err)
		}
		if !ok {
			e.log.Warn("rebalance sell not accepted", "symbol", sp.Symbol, "volume", sp.Volume)
			continue
		}
		submitted++
		achieved += float64(sp.Volume) * sp.Price
		e.log.Info("queued rebalance sell",
			"symbol", sp.Symbol, "volume", sp.Volume, "price", sp.Price)
	}
	if remaining := plan.Excess - achieved; remaining > 0 {
		e.log.Warn("exposure rebalance incomplete",
			"remaining", remaining, "completed", achieved/plan.Excess)
	}
	e.mu.Unlock()

	if submitted == 0 {
		return nil
	}
	e.Dispatch(ctx)
	e.AwaitCompletion(ctx, e.cfg.MaxWait)
	return nil
}
