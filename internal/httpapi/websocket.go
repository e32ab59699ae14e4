package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ironbook/internal/broadcast"
	"ironbook/internal/metrics"
	"ironbook/internal/orderservice"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHub bridges the orderservice's broadcast hub to WebSocket clients,
// enforcing the concurrent-connection cap spec.md names.
type wsHub struct {
	svc        *orderservice.Service
	metrics    *metrics.Metrics
	log        zerolog.Logger
	maxConns   int
	liveConns  atomic.Int64
}

func newWSHub(svc *orderservice.Service, m *metrics.Metrics, log zerolog.Logger, maxConns int) *wsHub {
	return &wsHub{svc: svc, metrics: m, log: log, maxConns: maxConns}
}

func (h *wsHub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if h.liveConns.Load() >= int64(h.maxConns) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.liveConns.Add(1)
	h.metrics.WSConnections.Inc()
	defer func() {
		h.liveConns.Add(-1)
		h.metrics.WSConnections.Dec()
		conn.Close()
	}()

	sub := h.subscription()
	defer sub.Close()

	go h.readPump(conn)
	h.writePump(conn, sub)
}

// subscription registers a new subscriber by calling through
// orderservice to the real broadcast.Hub.
func (h *wsHub) subscription() *broadcast.Subscription {
	return h.svc.Subscribe()
}

// readPump only exists to process control frames (pings/pongs/close);
// the API is server-push only, so any data frame is ignored.
func (h *wsHub) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type wsFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (h *wsHub) writePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(wsFrame{Type: string(evt.Type), Data: evt.Data}); err != nil {
				return
			}

		case <-sub.Lagged():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(wsFrame{Type: string(broadcast.EventLag), Data: map[string]string{"reason": "lagged"}}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
