// Package risk implements the pre-trade size/band/position gate and the
// post-trade two-sided position ledger. State is held in concurrent
// maps guarded by per-map mutexes, the same coarse-lock-per-map idiom
// the teacher uses for its client session table.
package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"ironbook/internal/apierr"
	"ironbook/internal/common"
	"ironbook/internal/engine"
)

// Config holds the configured risk bounds, decimal where the bound is
// a price-like or fractional quantity.
type Config struct {
	MinOrderSize       int64
	MaxOrderSize       int64
	PriceBandPercent   decimal.Decimal
	MaxPositionPerTrader int64
}

// registryEntry records who owns a live order, so trade counterparties
// can be resolved back to a trader id.
type registryEntry struct {
	TraderID string
	Side     common.Side
}

// Service is the risk gate plus its two pieces of mutable state: the
// order registry and the position ledger.
type Service struct {
	cfg Config

	registryMu sync.Mutex
	registry   map[uint64]registryEntry

	positionsMu sync.Mutex
	positions   map[string]int64
}

func New(cfg Config) *Service {
	return &Service{
		cfg:       cfg,
		registry:  make(map[uint64]registryEntry),
		positions: make(map[string]int64),
	}
}

// CheckOrder runs the stateless size/band checks and the stateful
// position-limit projection against a snapshot taken before this call.
func (s *Service) CheckOrder(traderID string, side common.Side, orderType common.OrderType, hasPrice bool, price decimal.Decimal, quantity int64, snap engine.PublicSnapshot) *apierr.Error {
	if quantity < s.cfg.MinOrderSize || quantity > s.cfg.MaxOrderSize {
		return apierr.RiskRejection(fmt.Sprintf("quantity %d outside bounds [%d, %d]", quantity, s.cfg.MinOrderSize, s.cfg.MaxOrderSize))
	}

	if orderType == common.Limit && hasPrice {
		if ref, ok := referencePrice(snap); ok {
			if !withinBand(price, ref, s.cfg.PriceBandPercent) {
				return apierr.RiskRejection(fmt.Sprintf("price %s outside band around reference %s", price.String(), ref.String()))
			}
		}
	}

	projected := s.projectPosition(traderID, side, quantity)
	if abs64(projected) > s.cfg.MaxPositionPerTrader {
		return apierr.RiskRejection(fmt.Sprintf("projected position %d exceeds limit %d", projected, s.cfg.MaxPositionPerTrader))
	}

	return nil
}

// referencePrice is snapshot mid if both sides are present, else last
// trade price, else no reference (caller skips the band check).
func referencePrice(snap engine.PublicSnapshot) (decimal.Decimal, bool) {
	if snap.HasMid {
		return snap.Mid, true
	}
	if snap.HasLastTrade {
		return snap.LastTrade, true
	}
	return decimal.Zero, false
}

func withinBand(price, reference, bandPercent decimal.Decimal) bool {
	band := bandPercent.Div(decimal.NewFromInt(100))
	lower := reference.Mul(decimal.NewFromInt(1).Sub(band))
	upper := reference.Mul(decimal.NewFromInt(1).Add(band))
	return !price.LessThan(lower) && !price.GreaterThan(upper)
}

func (s *Service) projectPosition(traderID string, side common.Side, quantity int64) int64 {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()
	current := s.positions[traderID]
	if side == common.Buy {
		return current + quantity
	}
	return current - quantity
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Register records an accepted order's trader and side so later trades
// against it can resolve a counterparty.
func (s *Service) Register(orderID uint64, traderID string, side common.Side) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	s.registry[orderID] = registryEntry{TraderID: traderID, Side: side}
}

// Unregister drops an order from the registry on cancel or full fill.
func (s *Service) Unregister(orderID uint64) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	delete(s.registry, orderID)
}

// OrderRef is one entry of a trader's open-order listing.
type OrderRef struct {
	OrderID uint64
	Side    common.Side
}

// OrdersForTrader returns the order ids and sides currently registered
// to traderID — a thin read over the registry for account-query
// conveniences, not used by the matching or risk paths themselves.
func (s *Service) OrdersForTrader(traderID string) []OrderRef {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	var out []OrderRef
	for orderID, entry := range s.registry {
		if entry.TraderID == traderID {
			out = append(out, OrderRef{OrderID: orderID, Side: entry.Side})
		}
	}
	return out
}

func (s *Service) lookup(orderID uint64) (registryEntry, bool) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	e, ok := s.registry[orderID]
	return e, ok
}

// ApplyTrades updates the position ledger for both sides of every
// trade, resolving the counterparty via the registry when the
// submitting order isn't the side in question. A registry miss means
// a stale or unknown order id; that side is silently skipped so an
// unknown counterparty never poisons the ledger.
func (s *Service) ApplyTrades(submittingTraderID string, submittingSide common.Side, trades []common.Trade) {
	for _, t := range trades {
		buyer, buyerOK := s.resolveTrader(submittingTraderID, submittingSide, common.Buy, t.BuyOrderID)
		seller, sellerOK := s.resolveTrader(submittingTraderID, submittingSide, common.Sell, t.SellOrderID)

		if buyerOK {
			s.adjustPosition(buyer, t.Quantity)
		}
		if sellerOK {
			s.adjustPosition(seller, -t.Quantity)
		}
	}
}

func (s *Service) resolveTrader(submittingTraderID string, submittingSide, wantSide common.Side, orderID uint64) (string, bool) {
	if submittingSide == wantSide {
		return submittingTraderID, true
	}
	entry, ok := s.lookup(orderID)
	if !ok {
		return "", false
	}
	return entry.TraderID, true
}

func (s *Service) adjustPosition(traderID string, delta int64) {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()
	s.positions[traderID] += delta
}

// Position returns a trader's current signed position, for tests and
// diagnostics.
func (s *Service) Position(traderID string) int64 {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()
	return s.positions[traderID]
}
