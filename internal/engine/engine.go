// Package engine is the single-writer façade over the order book: it
// allocates ids, converts the decimal wire price to integer cents at
// the one boundary that conversion is allowed to happen, validates
// requests before the book is ever touched, and translates book
// results (and their structured reject kinds) into apierr.Error.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ironbook/internal/apierr"
	"ironbook/internal/book"
	"ironbook/internal/common"
	"ironbook/internal/money"
)

// SubmitOrderRequest is the validated-at-the-boundary input to Submit.
type SubmitOrderRequest struct {
	TraderID    string
	Side        common.Side
	OrderType   common.OrderType
	HasPrice    bool
	Price       decimal.Decimal
	Quantity    int64
	TimeInForce common.TimeInForce
	StpMode     common.StpMode
}

// SubmitOrderResult is the engine's answer to a submission. Trade
// prices stay in integer cents (common.Trade.PriceCents).
type SubmitOrderResult struct {
	OrderID           uint64
	CorrelationID     uuid.UUID
	Accepted          bool
	Trades            []common.Trade
	RemainingQuantity int64
	StpAction         string
}

// ModifyOrderResult mirrors book.ModifyResult with decimal prices.
type ModifyOrderResult struct {
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	OldQuantity int64
	NewQuantity int64
}

// PublicSnapshot is book.Snapshot with cents translated to decimal.
type PublicSnapshot struct {
	HasBestBid   bool
	BestBid      decimal.Decimal
	HasBestAsk   bool
	BestAsk      decimal.Decimal
	HasSpread    bool
	Spread       decimal.Decimal
	HasMid       bool
	Mid          decimal.Decimal
	HasLastTrade bool
	LastTrade    decimal.Decimal
	LastQuantity int64
}

// PublicDepth is book.DepthLevel with cents translated to decimal.
type PublicDepth struct {
	Price      decimal.Decimal
	Quantity   int64
	OrderCount int
}

// Health reports process-lifetime counters for the health endpoint.
type Health struct {
	UptimeSeconds int64
	TotalOrders   uint64
	TotalTrades   uint64
}

// Engine owns the one OrderBook for the process and everything needed
// to allocate ids and translate its results for callers above it.
type Engine struct {
	mu   sync.RWMutex
	book *book.OrderBook

	nextOrderID    atomic.Uint64
	nextArrivalSeq atomic.Uint64
	totalOrders    atomic.Uint64
	totalTrades    atomic.Uint64

	startedAt time.Time
}

func New() *Engine {
	return &Engine{
		book:      book.NewOrderBook(),
		startedAt: time.Now(),
	}
}

func (e *Engine) allocOrderID() uint64    { return e.nextOrderID.Add(1) }
func (e *Engine) allocArrivalSeq() uint64 { return e.nextArrivalSeq.Add(1) }

// validateSubmit enforces the boundary rules that must hold before the
// book is ever touched, converting the decimal price to cents as part
// of validation since sub-cent precision is itself a validation error.
func validateSubmit(req SubmitOrderRequest) (priceCents int64, err *apierr.Error) {
	if req.TraderID == "" || len(req.TraderID) > 64 {
		return 0, apierr.Validation("trader id must be non-empty and at most 64 bytes")
	}
	if req.Quantity <= 0 {
		return 0, apierr.Validation("quantity must be positive")
	}
	switch req.OrderType {
	case common.Limit:
		if !req.HasPrice {
			return 0, apierr.Validation("limit order requires a price")
		}
		cents, cerr := money.DecimalToCents(req.Price)
		if cerr != nil {
			return 0, apierr.Validation(cerr.Error())
		}
		if cents <= 0 {
			return 0, apierr.Validation("price must be positive")
		}
		return cents, nil
	case common.Market:
		if req.HasPrice {
			return 0, apierr.Validation("market order must not specify a price")
		}
		return 0, nil
	default:
		return 0, apierr.Validation("unknown order type")
	}
}

// Submit validates, allocates an id, and admits the order to the book
// under the writer lock.
func (e *Engine) Submit(req SubmitOrderRequest) (SubmitOrderResult, *apierr.Error) {
	priceCents, verr := validateSubmit(req)
	if verr != nil {
		return SubmitOrderResult{}, verr
	}

	o := &common.Order{
		OrderID:       e.allocOrderID(),
		CorrelationID: uuid.New(),
		TraderID:      req.TraderID,
		Side:          req.Side,
		OrderType:     req.OrderType,
		HasPrice:      req.HasPrice,
		PriceCents:    priceCents,
		Quantity:      req.Quantity,
		TimeInForce:   req.TimeInForce,
		StpMode:       req.StpMode,
		ArrivalSeq:    e.allocArrivalSeq(),
	}

	e.mu.Lock()
	res := e.book.AddOrder(o)
	e.mu.Unlock()

	e.totalOrders.Add(1)
	e.totalTrades.Add(uint64(len(res.Trades)))

	if !res.Accepted {
		return SubmitOrderResult{}, rejectToError(res.RejectKind, res.RejectReason)
	}

	return SubmitOrderResult{
		OrderID:           o.OrderID,
		CorrelationID:     o.CorrelationID,
		Accepted:          true,
		Trades:            res.Trades,
		RemainingQuantity: res.RemainingQuantity,
		StpAction:         res.StpAction,
	}, nil
}

// Modify validates and delegates to the book under the writer lock.
func (e *Engine) Modify(orderID uint64, newPrice decimal.Decimal, newQuantity int64) (ModifyOrderResult, *apierr.Error) {
	if newQuantity <= 0 {
		return ModifyOrderResult{}, apierr.Validation("new quantity must be positive")
	}
	if newPrice.IsNegative() {
		return ModifyOrderResult{}, apierr.Validation("new price must not be negative")
	}
	newPriceCents, cerr := money.DecimalToCents(newPrice)
	if cerr != nil {
		return ModifyOrderResult{}, apierr.Validation(cerr.Error())
	}

	e.mu.Lock()
	res := e.book.ModifyOrder(orderID, newPriceCents, newQuantity, e.allocArrivalSeq())
	e.mu.Unlock()

	if !res.Accepted {
		return ModifyOrderResult{}, rejectToError(res.RejectKind, res.RejectReason)
	}

	return ModifyOrderResult{
		OldPrice:    money.CentsToDecimal(res.OldPriceCents),
		NewPrice:    money.CentsToDecimal(res.NewPriceCents),
		OldQuantity: res.OldQuantity,
		NewQuantity: res.NewQuantity,
	}, nil
}

// Cancel delegates to the book under the writer lock.
func (e *Engine) Cancel(orderID uint64) *apierr.Error {
	e.mu.Lock()
	res := e.book.CancelOrder(orderID)
	e.mu.Unlock()

	if !res.Cancelled {
		return apierr.NotFound("order not found")
	}
	return nil
}

// Snapshot takes the shared lock and translates the book's top-of-book
// cents fields to decimal.
func (e *Engine) Snapshot() PublicSnapshot {
	e.mu.RLock()
	s := e.book.Snapshot()
	e.mu.RUnlock()

	out := PublicSnapshot{HasBestBid: s.HasBestBid, HasBestAsk: s.HasBestAsk, HasSpread: s.HasSpread, HasMid: s.HasMid, HasLastTrade: s.HasLastTrade}
	if s.HasBestBid {
		out.BestBid = money.CentsToDecimal(s.BestBidCents)
	}
	if s.HasBestAsk {
		out.BestAsk = money.CentsToDecimal(s.BestAskCents)
	}
	if s.HasSpread {
		out.Spread = money.CentsToDecimal(s.SpreadCents)
	}
	if s.HasMid {
		out.Mid = money.CentsToDecimal(s.MidCents)
	}
	if s.HasLastTrade {
		out.LastTrade = money.CentsToDecimal(s.LastTradeCents)
		out.LastQuantity = s.LastTradeQuantity
	}
	return out
}

// Depth takes the shared lock and returns up to n aggregate levels per side.
func (e *Engine) Depth(n int) (bids, asks []PublicDepth) {
	e.mu.RLock()
	rawBids, rawAsks := e.book.Depth(n)
	e.mu.RUnlock()

	return translateDepth(rawBids), translateDepth(rawAsks)
}

func translateDepth(levels []book.DepthLevel) []PublicDepth {
	out := make([]PublicDepth, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, PublicDepth{Price: money.CentsToDecimal(lvl.PriceCents), Quantity: lvl.Quantity, OrderCount: lvl.OrderCount})
	}
	return out
}

// HealthSnapshot reports process-lifetime counters without touching the book.
func (e *Engine) HealthSnapshot() Health {
	return Health{
		UptimeSeconds: int64(time.Since(e.startedAt).Seconds()),
		TotalOrders:   e.totalOrders.Load(),
		TotalTrades:   e.totalTrades.Load(),
	}
}

func rejectToError(kind book.RejectKind, reason string) *apierr.Error {
	switch kind {
	case book.RejectNotFound:
		return apierr.NotFound(reason)
	case book.RejectDuplicateID, book.RejectUnfillable, book.RejectCrossed:
		return apierr.EngineRejection(reason)
	default:
		return apierr.Internal("unrecognized reject kind", nil)
	}
}
