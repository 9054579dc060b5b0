package broker

import (
	"context"

	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/portfolio"
)

// UpdateFunc receives asynchronous order-status deltas from the venue.
// Delivery order and duplication are NOT guaranteed; the reconciler's state
// machine is the sole safeguard. Implementations must return quickly and
// must never block on the venue.
type UpdateFunc func(order.Order)

// Venue is the execution-venue connector contract. PlaceOrder and
// CancelOrder return the venue's synchronous acknowledgment; fills,
// rejections and cancellations arrive later through the subscribed
// UpdateFunc.
type Venue interface {
	Start() error
	Disconnect() error
	Connected() bool

	Subscribe(UpdateFunc)

	QueryCash(ctx context.Context) (float64, error)
	QueryPositions(ctx context.Context) (map[string]portfolio.Position, error)

	PlaceOrder(ctx context.Context, o order.Order) (bool, error)
	CancelOrder(ctx context.Context, o order.Order) (bool, error)
}
