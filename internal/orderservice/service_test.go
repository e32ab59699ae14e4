package orderservice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/apierr"
	"ironbook/internal/audit"
	"ironbook/internal/broadcast"
	"ironbook/internal/common"
	"ironbook/internal/engine"
	"ironbook/internal/logging"
	"ironbook/internal/metrics"
	"ironbook/internal/ratelimit"
	"ironbook/internal/risk"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	eng := engine.New()
	riskSvc := risk.New(risk.Config{
		MinOrderSize:         1,
		MaxOrderSize:         1_000_000,
		PriceBandPercent:     decimal.NewFromInt(50),
		MaxPositionPerTrader: 1_000_000,
	})
	limiter := ratelimit.New(1000, time.Hour)
	hub := broadcast.New(16)
	hub.Start()
	t.Cleanup(func() { hub.Close() })

	auditSink := audit.New(logging.New(false))
	m := metrics.New()

	return New(eng, riskSvc, limiter, auditSink, m, hub)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSubmit_AcceptedOrderUpdatesLedgerAndUnregistersOnFill(t *testing.T) {
	s := newTestService(t)

	_, err := s.Submit(SubmitRequest{
		TraderID: "seller", Side: common.Sell, OrderType: common.Limit,
		HasPrice: true, Price: mustDecimal(t, "100.00"), Quantity: 10,
		TimeInForce: common.GTC, StpMode: common.Allow,
	})
	require.Nil(t, err)

	res, err := s.Submit(SubmitRequest{
		TraderID: "buyer", Side: common.Buy, OrderType: common.Limit,
		HasPrice: true, Price: mustDecimal(t, "100.00"), Quantity: 10,
		TimeInForce: common.GTC, StpMode: common.Allow,
	})
	require.Nil(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(0), res.RemainingQuantity)

	assert.Equal(t, int64(10), s.risk.Position("buyer"))
	assert.Equal(t, int64(-10), s.risk.Position("seller"))

	assert.Empty(t, s.risk.OrdersForTrader("buyer"))
	assert.Empty(t, s.risk.OrdersForTrader("seller"))
}

func TestSubmit_RateLimitRejectsWithoutTouchingBook(t *testing.T) {
	s := newTestService(t)
	s.limiter = ratelimit.New(0, time.Hour) // no tokens ever available

	_, err := s.Submit(SubmitRequest{
		TraderID: "trader-a", Side: common.Buy, OrderType: common.Market, Quantity: 10,
	})
	require.NotNil(t, err)
	assert.Equal(t, apierr.KindRateLimited, err.Kind)

	snap := s.Snapshot()
	assert.False(t, snap.HasBestBid)
}

func TestSubmit_RestingOrderStaysRegisteredUntilCancel(t *testing.T) {
	s := newTestService(t)

	res, err := s.Submit(SubmitRequest{
		TraderID: "trader-a", Side: common.Buy, OrderType: common.Limit,
		HasPrice: true, Price: mustDecimal(t, "100.00"), Quantity: 10,
		TimeInForce: common.GTC, StpMode: common.Allow,
	})
	require.Nil(t, err)

	refs := s.ListOrders("trader-a")
	require.Len(t, refs, 1)
	assert.Equal(t, res.OrderID, refs[0].OrderID)

	cerr := s.Cancel(res.OrderID, "trader-a")
	require.Nil(t, cerr)
	assert.Empty(t, s.ListOrders("trader-a"))
}

func TestCancelAll_CancelsEveryRestingOrderForTrader(t *testing.T) {
	s := newTestService(t)

	for _, price := range []string{"99.00", "98.00", "97.00"} {
		_, err := s.Submit(SubmitRequest{
			TraderID: "trader-a", Side: common.Buy, OrderType: common.Limit,
			HasPrice: true, Price: mustDecimal(t, price), Quantity: 10,
			TimeInForce: common.GTC, StpMode: common.Allow,
		})
		require.Nil(t, err)
	}

	n := s.CancelAll("trader-a")
	assert.Equal(t, 3, n)
	assert.Empty(t, s.ListOrders("trader-a"))
}

func TestModify_NotFoundUnregistersStaleEntry(t *testing.T) {
	s := newTestService(t)
	s.risk.Register(9999, "trader-a", common.Buy)
	_, err := s.Modify(9999, "trader-a", mustDecimal(t, "100.00"), 10)
	require.NotNil(t, err)
	assert.Equal(t, apierr.KindNotFound, err.Kind)
	assert.Empty(t, s.ListOrders("trader-a"))
}
