package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/common"
)

// --- helpers -----------------------------------------------------------

var nextTestOrderID uint64

func newOrder(side common.Side, orderType common.OrderType, priceCents int64, quantity int64) *common.Order {
	nextTestOrderID++
	return &common.Order{
		OrderID:     nextTestOrderID,
		TraderID:    "trader-a",
		Side:        side,
		OrderType:   orderType,
		HasPrice:    orderType == common.Limit,
		PriceCents:  priceCents,
		Quantity:    quantity,
		TimeInForce: common.GTC,
		StpMode:     common.Allow,
		ArrivalSeq:  nextTestOrderID,
	}
}

func withTrader(o *common.Order, traderID string) *common.Order {
	o.TraderID = traderID
	return o
}

func withTIF(o *common.Order, tif common.TimeInForce) *common.Order {
	o.TimeInForce = tif
	return o
}

func withSTP(o *common.Order, mode common.StpMode) *common.Order {
	o.StpMode = mode
	return o
}

// --- S1 Cross at limit ---------------------------------------------------

func TestAddOrder_CrossAtLimit(t *testing.T) {
	b := NewOrderBook()

	sell := newOrder(common.Sell, common.Limit, 10050, 50)
	res := b.AddOrder(sell)
	require.True(t, res.Accepted)
	require.Empty(t, res.Trades)

	buy := newOrder(common.Buy, common.Limit, 10050, 30)
	buy.TraderID = "trader-b"
	res = b.AddOrder(buy)

	require.True(t, res.Accepted)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(10050), res.Trades[0].PriceCents)
	assert.Equal(t, int64(30), res.Trades[0].Quantity)
	assert.Equal(t, int64(0), res.RemainingQuantity)

	asks := b.Asks.Items()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(20), asks[0].AggregateQuantity())
}

// --- S2 Market sweeps two levels ----------------------------------------

func TestAddOrder_MarketSweepsTwoLevels(t *testing.T) {
	b := NewOrderBook()

	b.AddOrder(newOrder(common.Sell, common.Limit, 10000, 40))
	b.AddOrder(newOrder(common.Sell, common.Limit, 10100, 100))

	buy := newOrder(common.Buy, common.Market, 0, 60)
	buy.TraderID = "trader-b"
	res := b.AddOrder(buy)

	require.True(t, res.Accepted)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, int64(10000), res.Trades[0].PriceCents)
	assert.Equal(t, int64(40), res.Trades[0].Quantity)
	assert.Equal(t, int64(10100), res.Trades[1].PriceCents)
	assert.Equal(t, int64(20), res.Trades[1].Quantity)
	assert.Equal(t, int64(0), res.RemainingQuantity)

	asks := b.Asks.Items()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(10100), asks[0].PriceCents)
	assert.Equal(t, int64(80), asks[0].AggregateQuantity())
}

// --- S3 FOK rejection -----------------------------------------------------

func TestAddOrder_FOKRejectsWithoutMutation(t *testing.T) {
	b := NewOrderBook()
	b.AddOrder(newOrder(common.Sell, common.Limit, 10000, 50))

	fok := withTIF(newOrder(common.Buy, common.Limit, 10000, 100), common.FOK)
	fok.TraderID = "trader-b"
	res := b.AddOrder(fok)

	assert.False(t, res.Accepted)
	assert.Equal(t, RejectUnfillable, res.RejectKind)
	assert.Empty(t, res.Trades)

	asks := b.Asks.Items()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(50), asks[0].AggregateQuantity())
}

// --- S4 STP CancelNewest --------------------------------------------------

func TestAddOrder_STPCancelNewest(t *testing.T) {
	b := NewOrderBook()
	resting := newOrder(common.Sell, common.Limit, 10000, 50)
	b.AddOrder(resting)

	incoming := withSTP(newOrder(common.Buy, common.Limit, 10000, 30), common.CancelNewest)
	res := b.AddOrder(incoming)

	require.True(t, res.Accepted)
	assert.Empty(t, res.Trades)
	assert.Equal(t, int64(0), res.RemainingQuantity)
	assert.Equal(t, common.CancelNewest.String(), res.StpAction)

	asks := b.Asks.Items()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(50), asks[0].AggregateQuantity())
}

// --- S5 Modify cross-spread -------------------------------------------

func TestModifyOrder_RejectsCrossSpread(t *testing.T) {
	b := NewOrderBook()
	sell := newOrder(common.Sell, common.Limit, 10500, 10)
	sell.TraderID = "trader-b"
	b.AddOrder(sell)

	buy := newOrder(common.Buy, common.Limit, 10000, 10)
	b.AddOrder(buy)

	res := b.ModifyOrder(buy.OrderID, 10500, 10, 999)
	assert.False(t, res.Accepted)
	assert.Equal(t, RejectCrossed, res.RejectKind)

	bids := b.Bids.Items()
	require.Len(t, bids, 1)
	assert.Equal(t, int64(10000), bids[0].PriceCents)
}

// --- invariant: no crossed book -------------------------------------------

func TestInvariant_NoCrossedBookAtRest(t *testing.T) {
	b := NewOrderBook()
	b.AddOrder(newOrder(common.Buy, common.Limit, 9900, 10))
	b.AddOrder(withTrader(newOrder(common.Sell, common.Limit, 10100, 10), "trader-b"))

	bestBid, hasBid := b.Bids.MinMut()
	bestAsk, hasAsk := b.Asks.MinMut()
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.Less(t, bestBid.PriceCents, bestAsk.PriceCents)
}

// --- invariant: price-time priority preserved on in-place decrement -------

func TestModifyOrder_InPlaceDecrementPreservesPriority(t *testing.T) {
	b := NewOrderBook()
	first := newOrder(common.Buy, common.Limit, 10000, 10)
	b.AddOrder(first)
	second := withTrader(newOrder(common.Buy, common.Limit, 10000, 10), "trader-b")
	b.AddOrder(second)

	res := b.ModifyOrder(first.OrderID, 10000, 5, 999)
	require.True(t, res.Accepted)

	lvl, ok := b.Bids.GetMut(&PriceLevel{PriceCents: 10000})
	require.True(t, ok)
	ordered := lvl.OrderedOrders()
	require.Len(t, ordered, 2)
	assert.Equal(t, first.OrderID, ordered[0].OrderID)
	assert.Equal(t, int64(5), ordered[0].Quantity)
}

// --- invariant: idempotent cancel-after-fill --------------------------

func TestCancelOrder_UnknownIDReturnsFalse(t *testing.T) {
	b := NewOrderBook()
	sell := newOrder(common.Sell, common.Limit, 10000, 10)
	b.AddOrder(sell)

	buy := withTrader(newOrder(common.Buy, common.Limit, 10000, 10), "trader-b")
	b.AddOrder(buy) // fully fills and removes sell from the book

	res := b.CancelOrder(sell.OrderID)
	assert.False(t, res.Cancelled)

	res = b.CancelOrder(sell.OrderID)
	assert.False(t, res.Cancelled)
}

// --- invariant: IOC never rests --------------------------------------

func TestAddOrder_IOCNeverRests(t *testing.T) {
	b := NewOrderBook()
	ioc := withTIF(newOrder(common.Buy, common.Limit, 10000, 50), common.IOC)
	res := b.AddOrder(ioc)

	require.True(t, res.Accepted)
	assert.Equal(t, int64(50), res.RemainingQuantity)

	_, found := b.index[ioc.OrderID]
	assert.False(t, found)
}

// --- invariant: trade_id monotonicity ---------------------------------

func TestAddOrder_TradeIDsMonotonic(t *testing.T) {
	b := NewOrderBook()
	b.AddOrder(newOrder(common.Sell, common.Limit, 10000, 10))
	b.AddOrder(newOrder(common.Sell, common.Limit, 10000, 10))

	buy := withTrader(newOrder(common.Buy, common.Market, 0, 20), "trader-b")
	res := b.AddOrder(buy)

	require.Len(t, res.Trades, 2)
	assert.Less(t, res.Trades[0].TradeID, res.Trades[1].TradeID)
}

// --- duplicate order id rejected --------------------------------------

func TestAddOrder_DuplicateIDRejected(t *testing.T) {
	b := NewOrderBook()
	o := newOrder(common.Buy, common.Limit, 10000, 10)
	require.True(t, b.AddOrder(o).Accepted)

	dup := *o
	res := b.AddOrder(&dup)
	assert.False(t, res.Accepted)
	assert.Equal(t, RejectDuplicateID, res.RejectKind)
}
