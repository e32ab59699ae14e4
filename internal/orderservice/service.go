// Package orderservice orchestrates the submission pipeline: rate
// limit, snapshot read, risk check, engine admission, registry and
// position updates, audit emission, and broadcast, in the order
// spec'd for submit/modify/cancel.
package orderservice

import (
	"time"

	"github.com/shopspring/decimal"

	"ironbook/internal/apierr"
	"ironbook/internal/audit"
	"ironbook/internal/broadcast"
	"ironbook/internal/common"
	"ironbook/internal/engine"
	"ironbook/internal/metrics"
	"ironbook/internal/ratelimit"
	"ironbook/internal/risk"
)

// SubmitRequest is the caller-facing submission request.
type SubmitRequest struct {
	TraderID    string
	Side        common.Side
	OrderType   common.OrderType
	HasPrice    bool
	Price       decimal.Decimal
	Quantity    int64
	TimeInForce common.TimeInForce
	StpMode     common.StpMode
}

// SubmitResponse is the caller-facing submission response.
type SubmitResponse struct {
	OrderID           uint64
	Accepted          bool
	Trades            []common.Trade
	RemainingQuantity int64
}

// Service wires together the engine, risk gate, rate limiter, audit
// sink, metrics, and broadcast hub behind the three pipeline entry
// points.
type Service struct {
	engine    *engine.Engine
	risk      *risk.Service
	limiter   *ratelimit.Limiter
	auditSink *audit.Sink
	metrics   *metrics.Metrics
	hub       *broadcast.Hub
}

func New(eng *engine.Engine, riskSvc *risk.Service, limiter *ratelimit.Limiter, auditSink *audit.Sink, m *metrics.Metrics, hub *broadcast.Hub) *Service {
	return &Service{
		engine:    eng,
		risk:      riskSvc,
		limiter:   limiter,
		auditSink: auditSink,
		metrics:   m,
		hub:       hub,
	}
}

// Submit runs the full ten-step pipeline described for submit_order.
func (s *Service) Submit(req SubmitRequest) (SubmitResponse, *apierr.Error) {
	start := time.Now()
	defer func() {
		s.metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	}()

	s.auditSink.OrderSubmitted(req.TraderID, req.Side, req.Quantity)

	if !s.limiter.Allow(req.TraderID) {
		s.recordReject(audit.SourceRateLimit, req.TraderID, "rate limit exceeded")
		return SubmitResponse{}, apierr.RateLimited("rate limit exceeded")
	}

	snap := s.engine.Snapshot()

	if rerr := s.risk.CheckOrder(req.TraderID, req.Side, req.OrderType, req.HasPrice, req.Price, req.Quantity, snap); rerr != nil {
		s.recordReject(audit.SourceRisk, req.TraderID, rerr.Message)
		return SubmitResponse{}, rerr
	}

	s.metrics.OrdersSubmittedTotal.Inc()
	result, eerr := s.engine.Submit(engine.SubmitOrderRequest{
		TraderID:    req.TraderID,
		Side:        req.Side,
		OrderType:   req.OrderType,
		HasPrice:    req.HasPrice,
		Price:       req.Price,
		Quantity:    req.Quantity,
		TimeInForce: req.TimeInForce,
		StpMode:     req.StpMode,
	})
	if eerr != nil {
		s.recordReject(audit.SourceEngine, req.TraderID, eerr.Message)
		return SubmitResponse{}, eerr
	}

	s.risk.Register(result.OrderID, req.TraderID, req.Side)

	s.risk.ApplyTrades(req.TraderID, req.Side, result.Trades)

	if result.RemainingQuantity == 0 {
		s.risk.Unregister(result.OrderID)
	}

	s.auditSink.OrderAccepted(result.OrderID, req.TraderID, result.RemainingQuantity)
	for _, t := range result.Trades {
		s.metrics.TradesExecutedTotal.Inc()
		s.auditSink.TradeExecuted(t, req.TraderID)
		s.hub.Publish(broadcast.Event{Type: broadcast.EventTrade, Data: t})
	}

	return SubmitResponse{
		OrderID:           result.OrderID,
		Accepted:          true,
		Trades:            result.Trades,
		RemainingQuantity: result.RemainingQuantity,
	}, nil
}

// ModifyResponse is the caller-facing modify response.
type ModifyResponse struct {
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	OldQuantity int64
	NewQuantity int64
}

// Modify delegates to the engine and unregisters the order only if the
// rejection was not-found (nothing to unregister on any other
// rejection kind, and nothing changes on acceptance beyond bookkeeping
// the engine already owns).
func (s *Service) Modify(orderID uint64, traderID string, newPrice decimal.Decimal, newQuantity int64) (ModifyResponse, *apierr.Error) {
	res, eerr := s.engine.Modify(orderID, newPrice, newQuantity)
	if eerr != nil {
		if eerr.Kind == apierr.KindNotFound {
			s.risk.Unregister(orderID)
		}
		s.recordReject(audit.SourceEngine, traderID, eerr.Message)
		return ModifyResponse{}, eerr
	}

	s.auditSink.OrderModified(orderID, traderID)
	s.hub.Publish(broadcast.Event{Type: broadcast.EventOrderModified, Data: map[string]any{"orderId": orderID}})

	return ModifyResponse{
		OldPrice:    res.OldPrice,
		NewPrice:    res.NewPrice,
		OldQuantity: res.OldQuantity,
		NewQuantity: res.NewQuantity,
	}, nil
}

// Cancel delegates to the engine and unconditionally unregisters the
// order from the risk registry.
func (s *Service) Cancel(orderID uint64, traderID string) *apierr.Error {
	eerr := s.engine.Cancel(orderID)
	s.risk.Unregister(orderID)
	if eerr != nil {
		s.recordReject(audit.SourceEngine, traderID, eerr.Message)
		return eerr
	}

	s.auditSink.OrderCancelled(orderID, traderID)
	s.hub.Publish(broadcast.Event{Type: broadcast.EventOrderCancelled, Data: map[string]any{"orderId": orderID}})
	return nil
}

func (s *Service) recordReject(source audit.Source, traderID, reason string) {
	s.metrics.OrdersRejectedTotal.WithLabelValues(string(source)).Inc()
	s.auditSink.OrderRejected(source, traderID, reason)
}

// Subscribe registers a new broadcast subscriber for the WebSocket layer.
func (s *Service) Subscribe() *broadcast.Subscription { return s.hub.Subscribe() }

// Snapshot and Depth pass straight through to the engine; read paths
// don't touch the pipeline's write-side state.
func (s *Service) Snapshot() engine.PublicSnapshot { return s.engine.Snapshot() }

func (s *Service) Depth(n int) (bids, asks []engine.PublicDepth) { return s.engine.Depth(n) }

func (s *Service) Health() engine.Health { return s.engine.HealthSnapshot() }

// ListOrders returns a trader's currently open order ids and sides.
func (s *Service) ListOrders(traderID string) []risk.OrderRef {
	return s.risk.OrdersForTrader(traderID)
}

// CancelAll cancels every resting order registered to traderID,
// built on the existing single-order cancel primitive.
func (s *Service) CancelAll(traderID string) int {
	refs := s.risk.OrdersForTrader(traderID)
	cancelled := 0
	for _, ref := range refs {
		if s.Cancel(ref.OrderID, traderID) == nil {
			cancelled++
		}
	}
	return cancelled
}
