// Package audit emits structured pipeline events over zerolog,
// distinct from the Prometheus counters in internal/metrics — this is
// the queryable record of *why* a submission stopped where it did.
package audit

import (
	"github.com/rs/zerolog"

	"ironbook/internal/common"
)

// Source names the pipeline stage that produced an event, matching the
// "name the source that short-circuited" propagation rule.
type Source string

const (
	SourceRateLimit   Source = "rate_limit"
	SourceRisk        Source = "risk"
	SourceEngine      Source = "engine"
	SourceOrderService Source = "order_service"
)

// Sink wraps a zerolog.Logger with the pipeline's event vocabulary.
type Sink struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sink {
	return &Sink{log: log.With().Str("component", "audit").Logger()}
}

func (s *Sink) OrderSubmitted(traderID string, side common.Side, quantity int64) {
	s.log.Info().
		Str("event", "order_submitted").
		Str("source", string(SourceOrderService)).
		Str("traderId", traderID).
		Str("side", side.String()).
		Int64("quantity", quantity).
		Msg("order submitted")
}

func (s *Sink) OrderAccepted(orderID uint64, traderID string, remaining int64) {
	s.log.Info().
		Str("event", "order_accepted").
		Str("source", string(SourceEngine)).
		Uint64("orderId", orderID).
		Str("traderId", traderID).
		Int64("remainingQuantity", remaining).
		Msg("order accepted")
}

func (s *Sink) OrderRejected(source Source, traderID, reason string) {
	s.log.Warn().
		Str("event", "order_rejected").
		Str("source", string(source)).
		Str("traderId", traderID).
		Str("reason", reason).
		Msg("order rejected")
}

func (s *Sink) OrderModified(orderID uint64, traderID string) {
	s.log.Info().
		Str("event", "order_modified").
		Str("source", string(SourceEngine)).
		Uint64("orderId", orderID).
		Str("traderId", traderID).
		Msg("order modified")
}

func (s *Sink) OrderCancelled(orderID uint64, traderID string) {
	s.log.Info().
		Str("event", "order_cancelled").
		Str("source", string(SourceEngine)).
		Uint64("orderId", orderID).
		Str("traderId", traderID).
		Msg("order cancelled")
}

func (s *Sink) TradeExecuted(t common.Trade, submittingTraderID string) {
	s.log.Info().
		Str("event", "trade_executed").
		Str("source", string(SourceEngine)).
		Uint64("tradeId", t.TradeID).
		Str("correlationId", t.CorrelationID.String()).
		Str("traderId", submittingTraderID).
		Uint64("buyOrderId", t.BuyOrderID).
		Uint64("sellOrderId", t.SellOrderID).
		Int64("quantity", t.Quantity).
		Int64("priceCents", t.PriceCents).
		Msg("trade executed")
}
