package common

import (
	"github.com/google/uuid"
)

// Order is an intent to trade, tracked by the book while it rests and
// discarded once it retires (filled, cancelled, or rejected).
//
// Price is carried as integer cents; Market orders carry HasPrice=false.
// Quantity is the remaining unfilled amount — callers must not read it
// as the originally requested size once the order has partially filled.
type Order struct {
	OrderID       uint64
	CorrelationID uuid.UUID
	TraderID      string
	Side          Side
	OrderType     OrderType
	HasPrice      bool
	PriceCents    int64
	Quantity      int64
	TimeInForce   TimeInForce
	StpMode       StpMode
	ArrivalSeq    uint64
}

// Resting reports whether o still has unfilled quantity that could sit
// in a price level (callers are responsible for actually placing it).
func (o *Order) Resting() bool {
	return o.Quantity > 0
}
