// Package book implements the double-sided, price-time-priority limit
// order book: two sorted price-level maps, an order index keyed by
// order id for O(log P + 1) cancel/modify (O(log P) to find the price
// level, O(1) to unlink the order's own list element within it), and
// the matching loop with self-trade-prevention and time-in-force
// handling.
//
// OrderBook is not internally synchronized — the engine façade
// (internal/engine) is the single writer and holds the lock.
package book

import (
	"container/list"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"ironbook/internal/common"
)

type priceLevels = btree.BTreeG[*PriceLevel]

type indexEntry struct {
	side       common.Side
	priceCents int64
	elem       *list.Element
}

// OrderBook is one symbol's double-sided book.
type OrderBook struct {
	Bids *priceLevels
	Asks *priceLevels

	index map[uint64]indexEntry

	nextTradeID uint64

	hasLastTrade      bool
	lastTradeCents    int64
	lastTradeQuantity int64
}

// NewOrderBook returns an empty book. Bids are ordered highest price
// first, asks lowest price first — in both cases, tree order is match
// priority order.
func NewOrderBook() *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.PriceCents > b.PriceCents
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.PriceCents < b.PriceCents
	})
	return &OrderBook{
		Bids:  bids,
		Asks:  asks,
		index: make(map[uint64]indexEntry),
	}
}

func (b *OrderBook) levelsFor(side common.Side) *priceLevels {
	if side == common.Buy {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) oppositeLevels(side common.Side) *priceLevels {
	if side == common.Buy {
		return b.Asks
	}
	return b.Bids
}

// AddOrder admits a new order: pre-admission duplicate check, FOK
// pre-check, matching loop, then post-match placement per the order's
// type and time-in-force.
func (b *OrderBook) AddOrder(o *common.Order) AddResult {
	if _, exists := b.index[o.OrderID]; exists {
		return AddResult{RejectKind: RejectDuplicateID, RejectReason: "duplicate order id", RemainingQuantity: o.Quantity}
	}

	if o.TimeInForce == common.FOK && !b.canFillCompletely(o) {
		return AddResult{RejectKind: RejectUnfillable, RejectReason: "fill-or-kill: insufficient marketable liquidity", RemainingQuantity: o.Quantity}
	}

	trades, stpAction := b.match(o)

	switch {
	case o.Quantity == 0:
		// Fully filled; nothing rests regardless of type or TIF.
	case o.OrderType == common.Market:
		// Unfilled market remainder is discarded, never rested.
	case o.TimeInForce == common.IOC:
		// Unfilled IOC remainder is discarded silently.
	case o.TimeInForce == common.FOK:
		// The pre-check guarantees a full fill; any leftover here is
		// still never rested, per FOK semantics.
	default: // Limit + GTC
		b.restOrder(o)
	}

	return AddResult{
		Accepted:          true,
		Trades:            trades,
		RemainingQuantity: o.Quantity,
		StpAction:         stpAction,
	}
}

// marketable reports whether a resting price crosses the incoming order.
func marketable(o *common.Order, restingPriceCents int64) bool {
	if o.OrderType == common.Market {
		return true
	}
	if o.Side == common.Buy {
		return restingPriceCents <= o.PriceCents
	}
	return restingPriceCents >= o.PriceCents
}

// match runs the core matching loop for o against the opposite side,
// returning the trades produced and (if any) the STP action applied.
func (b *OrderBook) match(o *common.Order) ([]common.Trade, string) {
	opp := b.oppositeLevels(o.Side)
	var trades []common.Trade
	stpAction := ""

	for o.Quantity > 0 {
		lvl, ok := opp.MinMut()
		if !ok || !marketable(o, lvl.PriceCents) {
			break
		}

		e := lvl.Orders.Front()
		for e != nil && o.Quantity > 0 {
			next := e.Next()
			r := e.Value.(*common.Order)

			if r.TraderID == o.TraderID && o.StpMode != common.Allow {
				stpAction = b.resolveSTP(lvl, e, o, r)
				e = next
				continue
			}

			matchQty := min(o.Quantity, r.Quantity)
			trade := common.Trade{
				TradeID:       b.nextTrade(),
				CorrelationID: uuid.New(),
				BuyOrderID:    buyOrderID(o, r),
				SellOrderID:   sellOrderID(o, r),
				PriceCents:    r.PriceCents,
				Quantity:      matchQty,
				Timestamp:     time.Now(),
			}
			trades = append(trades, trade)
			b.hasLastTrade = true
			b.lastTradeCents = trade.PriceCents
			b.lastTradeQuantity = trade.Quantity

			o.Quantity -= matchQty
			r.Quantity -= matchQty

			if r.Quantity == 0 {
				lvl.Orders.Remove(e)
				delete(b.index, r.OrderID)
			}
			e = next
		}

		if lvl.Orders.Len() == 0 {
			opp.Delete(lvl)
		}
	}

	return trades, stpAction
}

// resolveSTP applies the incoming order's self-trade-prevention policy
// to one same-trader pair, unlinking r's list element in place when its
// policy retires r. The caller has already captured r's successor
// before calling this, so removing e here never disturbs the walk.
func (b *OrderBook) resolveSTP(lvl *PriceLevel, e *list.Element, o, r *common.Order) (action string) {
	switch o.StpMode {
	case common.CancelNewest:
		o.Quantity = 0
		return common.CancelNewest.String()

	case common.CancelOldest:
		lvl.Orders.Remove(e)
		delete(b.index, r.OrderID)
		return common.CancelOldest.String()

	case common.CancelBoth:
		lvl.Orders.Remove(e)
		delete(b.index, r.OrderID)
		o.Quantity = 0
		return common.CancelBoth.String()

	case common.DecrementAndCancel:
		dec := min(o.Quantity, r.Quantity)
		o.Quantity -= dec
		r.Quantity -= dec
		if r.Quantity == 0 {
			lvl.Orders.Remove(e)
			delete(b.index, r.OrderID)
		}
		return common.DecrementAndCancel.String()

	default:
		return ""
	}
}

func buyOrderID(o, r *common.Order) uint64 {
	if o.Side == common.Buy {
		return o.OrderID
	}
	return r.OrderID
}

func sellOrderID(o, r *common.Order) uint64 {
	if o.Side == common.Sell {
		return o.OrderID
	}
	return r.OrderID
}

func (b *OrderBook) nextTrade() uint64 {
	b.nextTradeID++
	return b.nextTradeID
}

// canFillCompletely walks the opposite side in match-priority order,
// summing quantity available to o net of same-trader orders its STP
// mode would forbid matching against.
func (b *OrderBook) canFillCompletely(o *common.Order) bool {
	opp := b.oppositeLevels(o.Side)
	var total int64
	for _, lvl := range opp.Items() {
		if !marketable(o, lvl.PriceCents) {
			break
		}
		for e := lvl.Orders.Front(); e != nil; e = e.Next() {
			r := e.Value.(*common.Order)
			if r.TraderID == o.TraderID && o.StpMode != common.Allow {
				continue
			}
			total += r.Quantity
			if total >= o.Quantity {
				return true
			}
		}
	}
	return total >= o.Quantity
}

// restOrder places o at the tail of its side's level at o.PriceCents,
// creating the level if needed, and indexes it with the resulting list
// element so CancelOrder/ModifyOrder can unlink it directly later. It
// never matches.
func (b *OrderBook) restOrder(o *common.Order) {
	levels := b.levelsFor(o.Side)
	lvl, ok := levels.GetMut(&PriceLevel{PriceCents: o.PriceCents})
	if !ok {
		lvl = newPriceLevel(o.PriceCents, o.Side)
		levels.Set(lvl)
	}
	elem := lvl.Orders.PushBack(o)
	b.index[o.OrderID] = indexEntry{side: o.Side, priceCents: o.PriceCents, elem: elem}
}

// CancelOrder removes a resting order. Returns false if the id is
// unknown (already filled, already cancelled, or never existed).
func (b *OrderBook) CancelOrder(orderID uint64) CancelResult {
	entry, ok := b.index[orderID]
	if !ok {
		return CancelResult{Cancelled: false}
	}
	levels := b.levelsFor(entry.side)
	lvl, ok := levels.GetMut(&PriceLevel{PriceCents: entry.priceCents})
	if !ok {
		// Index pointed at a level that no longer exists; treat as a
		// stale entry rather than panicking.
		delete(b.index, orderID)
		return CancelResult{Cancelled: false}
	}
	lvl.Orders.Remove(entry.elem)
	delete(b.index, orderID)
	if lvl.Orders.Len() == 0 {
		levels.Delete(lvl)
	}
	return CancelResult{Cancelled: true}
}

// ModifyOrder changes an order's price and/or quantity. A quantity
// decrease at an unchanged price preserves time priority (in-place);
// anything else cancels and reposts at the tail with newArrivalSeq,
// keeping the same order_id. A repost that would cross the spread is
// rejected without mutating the book.
func (b *OrderBook) ModifyOrder(orderID uint64, newPriceCents, newQuantity int64, newArrivalSeq uint64) ModifyResult {
	entry, ok := b.index[orderID]
	if !ok {
		return ModifyResult{RejectKind: RejectNotFound, RejectReason: "not found"}
	}
	levels := b.levelsFor(entry.side)
	lvl, ok := levels.GetMut(&PriceLevel{PriceCents: entry.priceCents})
	if !ok {
		delete(b.index, orderID)
		return ModifyResult{RejectKind: RejectNotFound, RejectReason: "not found"}
	}

	order := entry.elem.Value.(*common.Order)
	oldPrice, oldQty := order.PriceCents, order.Quantity

	if b.crosses(entry.side, newPriceCents) {
		return ModifyResult{RejectKind: RejectCrossed, RejectReason: fmt.Sprintf("modify would cross the spread at %d", newPriceCents)}
	}

	if newQuantity < oldQty && newPriceCents == oldPrice {
		order.Quantity = newQuantity
		return ModifyResult{
			Accepted: true, OldPriceCents: oldPrice, NewPriceCents: oldPrice,
			OldQuantity: oldQty, NewQuantity: newQuantity,
		}
	}

	// Cancel-and-repost: time priority is lost, order_id is kept.
	lvl.Orders.Remove(entry.elem)
	if lvl.Orders.Len() == 0 {
		levels.Delete(lvl)
	}
	delete(b.index, orderID)

	order.PriceCents = newPriceCents
	order.Quantity = newQuantity
	order.ArrivalSeq = newArrivalSeq
	b.restOrder(order)

	return ModifyResult{
		Accepted: true, OldPriceCents: oldPrice, NewPriceCents: newPriceCents,
		OldQuantity: oldQty, NewQuantity: newQuantity,
	}
}

// crosses reports whether a resting order on side at priceCents would
// be immediately marketable against the opposite book.
func (b *OrderBook) crosses(side common.Side, priceCents int64) bool {
	opp := b.oppositeLevels(side)
	lvl, ok := opp.MinMut()
	if !ok {
		return false
	}
	if side == common.Buy {
		return priceCents >= lvl.PriceCents
	}
	return priceCents <= lvl.PriceCents
}

// Snapshot returns a consistent point-in-time read of the top of book.
func (b *OrderBook) Snapshot() Snapshot {
	var s Snapshot
	bestBid, hasBid := b.Bids.MinMut()
	bestAsk, hasAsk := b.Asks.MinMut()

	if hasBid {
		s.HasBestBid = true
		s.BestBidCents = bestBid.PriceCents
	}
	if hasAsk {
		s.HasBestAsk = true
		s.BestAskCents = bestAsk.PriceCents
	}
	if hasBid && hasAsk {
		s.HasSpread = true
		s.SpreadCents = bestAsk.PriceCents - bestBid.PriceCents
		s.HasMid = true
		s.MidCents = (bestBid.PriceCents + bestAsk.PriceCents) / 2
	}
	if b.hasLastTrade {
		s.HasLastTrade = true
		s.LastTradeCents = b.lastTradeCents
		s.LastTradeQuantity = b.lastTradeQuantity
	}
	return s
}

// Depth returns up to n aggregate levels per side, best first.
func (b *OrderBook) Depth(n int) (bids, asks []DepthLevel) {
	bids = depthFrom(b.Bids.Items(), n)
	asks = depthFrom(b.Asks.Items(), n)
	return
}

func depthFrom(levels []*PriceLevel, n int) []DepthLevel {
	if n <= 0 || n > len(levels) {
		n = len(levels)
	}
	out := make([]DepthLevel, 0, n)
	for _, lvl := range levels[:n] {
		out = append(out, DepthLevel{PriceCents: lvl.PriceCents, Quantity: lvl.AggregateQuantity(), OrderCount: lvl.Orders.Len()})
	}
	return out
}
