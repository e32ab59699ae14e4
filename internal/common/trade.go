package common

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable execution record. TradeID is strictly
// monotonically increasing across the book's lifetime.
type Trade struct {
	TradeID       uint64
	CorrelationID uuid.UUID
	BuyOrderID    uint64
	SellOrderID   uint64
	PriceCents    int64
	Quantity      int64
	Timestamp     time.Time
}
