package book

import "ironbook/internal/common"

// RejectKind distinguishes why the book refused to admit or mutate an
// order, so callers can switch on it instead of matching reject strings.
type RejectKind int

const (
	RejectNone RejectKind = iota
	RejectDuplicateID
	RejectNotFound
	RejectCrossed
	RejectUnfillable
)

// AddResult reports the outcome of OrderBook.AddOrder.
type AddResult struct {
	Accepted          bool
	RejectKind        RejectKind
	RejectReason      string
	Trades            []common.Trade
	RemainingQuantity int64
	StpAction         string
}

// CancelResult reports the outcome of OrderBook.CancelOrder.
type CancelResult struct {
	Cancelled bool
}

// ModifyResult reports the outcome of OrderBook.ModifyOrder.
type ModifyResult struct {
	Accepted     bool
	RejectKind   RejectKind
	RejectReason string
	OldPriceCents int64
	NewPriceCents int64
	OldQuantity   int64
	NewQuantity   int64
}

// Snapshot is a point-in-time read of the top of book. Zero values in
// the Has* fields mean the corresponding field has no meaning (empty
// side, or no trade has ever printed).
type Snapshot struct {
	HasBestBid        bool
	BestBidCents      int64
	HasBestAsk        bool
	BestAskCents      int64
	HasSpread         bool
	SpreadCents       int64
	HasMid            bool
	MidCents          int64
	HasLastTrade      bool
	LastTradeCents    int64
	LastTradeQuantity int64
}

// DepthLevel is one aggregate row of a depth snapshot.
type DepthLevel struct {
	PriceCents int64
	Quantity   int64
	OrderCount int
}
