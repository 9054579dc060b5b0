package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/livetrader/order"
	"github.com/rustyeddy/livetrader/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	updates []order.Order
}

func (r *recorder) record(o order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, o)
}

func (r *recorder) all() []order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]order.Order, len(r.updates))
	copy(out, r.updates)
	return out
}

func TestPaperRejectsWhenDisconnected(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	o := order.New("600000", order.Buy, order.Limit, 10, 1000)

	_, err := p.PlaceOrder(context.Background(), *o)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = p.QueryCash(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPaperFillsAtOrderPrice(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	rec := &recorder{}
	p.Subscribe(rec.record)
	require.NoError(t, p.Start())

	o := order.New("600000", order.Buy, order.Limit, 10.5, 1000)
	ack, err := p.PlaceOrder(context.Background(), *o)
	require.NoError(t, err)
	require.True(t, ack)

	require.NoError(t, p.Disconnect()) // waits for fill goroutines

	updates := rec.all()
	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, o.ID, u.ID)
	assert.NotEmpty(t, u.VenueID)
	assert.Equal(t, order.Filled, u.Status)
	assert.Equal(t, int64(1000), u.FilledVolume)
	assert.Equal(t, 10.5, u.FilledPrice)
}

func TestPaperPartialSteps(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	p.PartialSteps = 2
	rec := &recorder{}
	p.Subscribe(rec.record)
	require.NoError(t, p.Start())

	o := order.New("600000", order.Buy, order.Limit, 10, 900)
	_, err := p.PlaceOrder(context.Background(), *o)
	require.NoError(t, err)
	require.NoError(t, p.Disconnect())

	updates := rec.all()
	require.Len(t, updates, 3)
	assert.Equal(t, order.PartialFilled, updates[0].Status)
	assert.Equal(t, int64(300), updates[0].FilledVolume)
	assert.Equal(t, order.PartialFilled, updates[1].Status)
	assert.Equal(t, int64(600), updates[1].FilledVolume)
	assert.Equal(t, order.Filled, updates[2].Status)
	assert.Equal(t, int64(900), updates[2].FilledVolume)
}

func TestPaperCancelSuppressesFill(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	p.FillDelay = 200 * time.Millisecond
	rec := &recorder{}
	p.Subscribe(rec.record)
	require.NoError(t, p.Start())

	o := order.New("600000", order.Buy, order.Limit, 10, 1000)
	_, err := p.PlaceOrder(context.Background(), *o)
	require.NoError(t, err)

	ack, err := p.CancelOrder(context.Background(), *o)
	require.NoError(t, err)
	require.True(t, ack)

	require.NoError(t, p.Disconnect())

	for _, u := range rec.all() {
		assert.NotEqual(t, order.Filled, u.Status)
	}
}

func TestPaperCancelUnknownOrder(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	require.NoError(t, p.Start())

	o := order.New("600000", order.Buy, order.Limit, 10, 1000)
	ack, err := p.CancelOrder(context.Background(), *o)
	require.NoError(t, err)
	assert.False(t, ack)
}

func TestPaperQueryAccount(t *testing.T) {
	t.Parallel()

	positions := map[string]portfolio.Position{
		"600000": {Symbol: "600000", TotalVolume: 1000, AvgPrice: 10},
	}
	p := New(55555, positions)
	require.NoError(t, p.Start())

	cash, err := p.QueryCash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55555.0, cash)

	got, err := p.QueryPositions(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, "600000")
	assert.Equal(t, int64(1000), got["600000"].TotalVolume)

	// The map is a copy; mutating it cannot touch venue state.
	delete(got, "600000")
	again, err := p.QueryPositions(context.Background())
	require.NoError(t, err)
	assert.Contains(t, again, "600000")
}

func TestPaperDuplicatePlacementRefused(t *testing.T) {
	t.Parallel()

	p := New(100000, nil)
	require.NoError(t, p.Start())

	o := order.New("600000", order.Buy, order.Limit, 10, 1000)
	ack, err := p.PlaceOrder(context.Background(), *o)
	require.NoError(t, err)
	require.True(t, ack)

	ack, err = p.PlaceOrder(context.Background(), *o)
	require.NoError(t, err)
	assert.False(t, ack)

	require.NoError(t, p.Disconnect())
}
