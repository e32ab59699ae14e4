package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"ironbook/internal/apierr"
	"ironbook/internal/common"
	"ironbook/internal/engine"
	"ironbook/internal/orderservice"
)

type submitOrderBody struct {
	TraderID    string              `json:"traderId"`
	Price       *decimal.Decimal    `json:"price,omitempty"`
	Quantity    int64               `json:"quantity"`
	Side        common.Side         `json:"side"`
	OrderType   common.OrderType    `json:"orderType"`
	TimeInForce *common.TimeInForce `json:"timeInForce,omitempty"`
	StpMode     *common.StpMode     `json:"stpMode,omitempty"`
}

type tradeWire struct {
	TradeID     uint64 `json:"tradeId"`
	BuyOrderID  uint64 `json:"buyOrderId"`
	SellOrderID uint64 `json:"sellOrderId"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
}

type submitOrderResponse struct {
	OrderID           uint64      `json:"orderId"`
	Accepted          bool        `json:"accepted"`
	RejectReason      string      `json:"rejectReason,omitempty"`
	Trades            []tradeWire `json:"trades"`
	RemainingQuantity int64       `json:"remainingQuantity"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body submitOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierr.Validation("malformed request body"))
		return
	}

	req := orderservice.SubmitRequest{
		TraderID:    body.TraderID,
		Side:        body.Side,
		OrderType:   body.OrderType,
		Quantity:    body.Quantity,
		TimeInForce: common.GTC,
		StpMode:     common.Allow,
	}
	if body.Price != nil {
		req.HasPrice = true
		req.Price = *body.Price
	}
	if body.TimeInForce != nil {
		req.TimeInForce = *body.TimeInForce
	}
	if body.StpMode != nil {
		req.StpMode = *body.StpMode
	}

	res, err := s.svc.Submit(req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitOrderResponse{
		OrderID:           res.OrderID,
		Accepted:          res.Accepted,
		Trades:            tradeWires(res.Trades),
		RemainingQuantity: res.RemainingQuantity,
	})
}

func tradeWires(trades []common.Trade) []tradeWire {
	out := make([]tradeWire, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeWire{
			TradeID:     t.TradeID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       centsToWireString(t.PriceCents),
			Quantity:    t.Quantity,
		})
	}
	return out
}

type modifyOrderBody struct {
	NewPrice    decimal.Decimal `json:"newPrice"`
	NewQuantity int64           `json:"newQuantity"`
}

type modifyOrderResponse struct {
	OrderID     uint64 `json:"orderId"`
	OldPrice    string `json:"oldPrice"`
	NewPrice    string `json:"newPrice"`
	OldQuantity int64  `json:"oldQuantity"`
	NewQuantity int64  `json:"newQuantity"`
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body modifyOrderBody
	if derr := json.NewDecoder(r.Body).Decode(&body); derr != nil {
		writeError(w, apierr.Validation("malformed request body"))
		return
	}

	traderID := r.URL.Query().Get("trader")

	res, merr := s.svc.Modify(orderID, traderID, body.NewPrice, body.NewQuantity)
	if merr != nil {
		writeError(w, merr)
		return
	}

	writeJSON(w, http.StatusOK, modifyOrderResponse{
		OrderID:     orderID,
		OldPrice:    res.OldPrice.String(),
		NewPrice:    res.NewPrice.String(),
		OldQuantity: res.OldQuantity,
		NewQuantity: res.NewQuantity,
	})
}

type cancelOrderResponse struct {
	OrderID   uint64 `json:"orderId"`
	Cancelled bool   `json:"cancelled"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	traderID := r.URL.Query().Get("trader")
	if cerr := s.svc.Cancel(orderID, traderID); cerr != nil {
		writeError(w, cerr)
		return
	}

	writeJSON(w, http.StatusOK, cancelOrderResponse{OrderID: orderID, Cancelled: true})
}

func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	traderID := r.URL.Query().Get("trader")
	if traderID == "" {
		writeError(w, apierr.Validation("trader query parameter is required"))
		return
	}
	n := s.svc.CancelAll(traderID)
	writeJSON(w, http.StatusOK, map[string]any{"trader": traderID, "cancelled": n})
}

type openOrderWire struct {
	OrderID uint64 `json:"orderId"`
	Side    string `json:"side"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	traderID := r.URL.Query().Get("trader")
	if traderID == "" {
		writeError(w, apierr.Validation("trader query parameter is required"))
		return
	}
	refs := s.svc.ListOrders(traderID)
	out := make([]openOrderWire, 0, len(refs))
	for _, ref := range refs {
		out = append(out, openOrderWire{OrderID: ref.OrderID, Side: ref.Side.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"trader": traderID, "orders": out})
}

type depthLevelWire struct {
	Price      string `json:"price"`
	Quantity   int64  `json:"quantity"`
	OrderCount int    `json:"orderCount"`
}

type marketResponse struct {
	BestBid      *string          `json:"bestBid,omitempty"`
	BestAsk      *string          `json:"bestAsk,omitempty"`
	Spread       *string          `json:"spread,omitempty"`
	Mid          *string          `json:"mid,omitempty"`
	LastTrade    *string          `json:"lastTrade,omitempty"`
	LastQuantity *int64           `json:"lastQuantity,omitempty"`
	Bids         []depthLevelWire `json:"bids,omitempty"`
	Asks         []depthLevelWire `json:"asks,omitempty"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	resp := marketResponse{}
	if snap.HasBestBid {
		resp.BestBid = strPtr(snap.BestBid.String())
	}
	if snap.HasBestAsk {
		resp.BestAsk = strPtr(snap.BestAsk.String())
	}
	if snap.HasSpread {
		resp.Spread = strPtr(snap.Spread.String())
	}
	if snap.HasMid {
		resp.Mid = strPtr(snap.Mid.String())
	}
	if snap.HasLastTrade {
		resp.LastTrade = strPtr(snap.LastTrade.String())
		resp.LastQuantity = &snap.LastQuantity
	}

	if depthParam := r.URL.Query().Get("depth"); depthParam != "" {
		n, perr := strconv.Atoi(depthParam)
		if perr != nil || n <= 0 {
			writeError(w, apierr.Validation("depth must be a positive integer"))
			return
		}
		bids, asks := s.svc.Depth(n)
		resp.Bids = depthWires(bids)
		resp.Asks = depthWires(asks)
	}

	writeJSON(w, http.StatusOK, resp)
}

func depthWires(levels []engine.PublicDepth) []depthLevelWire {
	out := make([]depthLevelWire, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, depthLevelWire{Price: lvl.Price.String(), Quantity: lvl.Quantity, OrderCount: lvl.OrderCount})
	}
	return out
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	TotalOrders   uint64 `json:"totalOrders"`
	TotalTrades   uint64 `json:"totalTrades"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.svc.Health()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: h.UptimeSeconds,
		TotalOrders:   h.TotalOrders,
		TotalTrades:   h.TotalTrades,
	})
}

func parseOrderID(r *http.Request) (uint64, *apierr.Error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apierr.Validation("order id must be a positive integer")
	}
	return id, nil
}

func strPtr(s string) *string { return &s }

func centsToWireString(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *apierr.Error) {
	writeJSON(w, err.Kind.HTTPStatus(), map[string]any{
		"error": err.Message,
		"kind":  err.Kind.String(),
	})
}
