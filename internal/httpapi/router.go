// Package httpapi is the HTTP and WebSocket surface over orderservice,
// routed with gorilla/mux and upgraded with gorilla/websocket — the
// "ordinary plumbing" spec.md names but still wires through a real
// router and transport rather than bare net/http muxing.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"ironbook/internal/metrics"
	"ironbook/internal/orderservice"
)

// Server holds everything the handlers need: the pipeline, the metrics
// registry's handler, and the WebSocket hub wiring.
type Server struct {
	svc     *orderservice.Service
	metrics *metrics.Metrics
	ws      *wsHub
	log     zerolog.Logger
}

func New(svc *orderservice.Service, m *metrics.Metrics, log zerolog.Logger, maxWSConnections int) *Server {
	return &Server{
		svc:     svc,
		metrics: m,
		ws:      newWSHub(svc, m, log, maxWSConnections),
		log:     log,
	}
}

// Router builds the gorilla/mux router for the full API surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handleCancelAll).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id}", s.handleModifyOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/market", s.handleMarket).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.ws.handleUpgrade).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	return r
}
