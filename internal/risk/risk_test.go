package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/common"
	"ironbook/internal/engine"
)

func newTestService() *Service {
	return New(Config{
		MinOrderSize:         1,
		MaxOrderSize:         1000,
		PriceBandPercent:     decimal.NewFromInt(10),
		MaxPositionPerTrader: 1000,
	})
}

func TestCheckOrder_RejectsOutOfBoundsSize(t *testing.T) {
	s := newTestService()
	err := s.CheckOrder("trader-a", common.Buy, common.Market, false, decimal.Zero, 2000, engine.PublicSnapshot{})
	require.NotNil(t, err)
}

func TestCheckOrder_SkipsBandCheckWithoutReference(t *testing.T) {
	s := newTestService()
	err := s.CheckOrder("trader-a", common.Buy, common.Limit, true, decimal.NewFromInt(1000), 10, engine.PublicSnapshot{})
	assert.Nil(t, err)
}

func TestCheckOrder_RejectsPriceOutsideBand(t *testing.T) {
	s := newTestService()
	snap := engine.PublicSnapshot{HasMid: true, Mid: decimal.NewFromInt(100)}
	err := s.CheckOrder("trader-a", common.Buy, common.Limit, true, decimal.NewFromInt(200), 10, snap)
	require.NotNil(t, err)
}

func TestCheckOrder_AcceptsPriceWithinBand(t *testing.T) {
	s := newTestService()
	snap := engine.PublicSnapshot{HasMid: true, Mid: decimal.NewFromInt(100)}
	err := s.CheckOrder("trader-a", common.Buy, common.Limit, true, decimal.NewFromInt(105), 10, snap)
	assert.Nil(t, err)
}

// S6 Position limit blocks.
func TestCheckOrder_PositionLimitBlocksSecondOrder(t *testing.T) {
	s := newTestService()

	err := s.CheckOrder("trader-a", common.Buy, common.Market, false, decimal.Zero, 900, engine.PublicSnapshot{})
	require.Nil(t, err)
	s.adjustPosition("trader-a", 900)

	err = s.CheckOrder("trader-a", common.Buy, common.Market, false, decimal.Zero, 200, engine.PublicSnapshot{})
	require.NotNil(t, err)
	assert.Equal(t, int64(900), s.Position("trader-a"))
}

func TestApplyTrades_TwoSidedUpdateWithCounterpartyLookup(t *testing.T) {
	s := newTestService()

	s.Register(1, "maker", common.Sell)

	trades := []common.Trade{
		{BuyOrderID: 2, SellOrderID: 1, Quantity: 30, PriceCents: 10000},
	}
	s.ApplyTrades("taker", common.Buy, trades)

	assert.Equal(t, int64(30), s.Position("taker"))
	assert.Equal(t, int64(-30), s.Position("maker"))
}

func TestApplyTrades_SilentlySkipsUnknownCounterparty(t *testing.T) {
	s := newTestService()

	trades := []common.Trade{
		{BuyOrderID: 2, SellOrderID: 999, Quantity: 30, PriceCents: 10000},
	}
	s.ApplyTrades("taker", common.Buy, trades)

	assert.Equal(t, int64(30), s.Position("taker"))
	assert.Equal(t, int64(0), s.Position("unknown"))
}

func TestRegisterUnregister_OrdersForTrader(t *testing.T) {
	s := newTestService()
	s.Register(1, "trader-a", common.Buy)
	s.Register(2, "trader-a", common.Sell)
	s.Register(3, "trader-b", common.Buy)

	refs := s.OrdersForTrader("trader-a")
	require.Len(t, refs, 2)

	s.Unregister(1)
	refs = s.OrdersForTrader("trader-a")
	require.Len(t, refs, 1)
	assert.Equal(t, uint64(2), refs[0].OrderID)
}
