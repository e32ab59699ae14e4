package book

import (
	"container/list"

	"ironbook/internal/common"
)

// PriceLevel is a FIFO queue of resting orders sharing a side and price.
// Orders is a doubly linked list rather than a slice so that cancelling
// or reposting a known order unlinks its element directly, in O(1),
// instead of scanning the level to find its position.
type PriceLevel struct {
	PriceCents int64
	Side       common.Side
	Orders     *list.List
}

func newPriceLevel(priceCents int64, side common.Side) *PriceLevel {
	return &PriceLevel{PriceCents: priceCents, Side: side, Orders: list.New()}
}

// AggregateQuantity sums the remaining quantity of every resting order
// at this level.
func (l *PriceLevel) AggregateQuantity() int64 {
	var total int64
	for e := l.Orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*common.Order).Quantity
	}
	return total
}

// OrderedOrders returns the level's resting orders in FIFO order. The
// matching and cancel/modify paths walk or unlink list elements
// directly; this allocates a slice and exists for snapshot/test reads.
func (l *PriceLevel) OrderedOrders() []*common.Order {
	out := make([]*common.Order, 0, l.Orders.Len())
	for e := l.Orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*common.Order))
	}
	return out
}
