// Package broadcast implements a bounded, lossy multi-producer /
// multi-subscriber fan-out for market-data events. Producers never
// block; a subscriber that falls behind gets a lag signal and resumes
// from the next live message rather than stalling the hub.
package broadcast

import (
	"sync"

	"gopkg.in/tomb.v2"
)

// EventType distinguishes the payload carried by an Event.
type EventType string

const (
	EventTrade           EventType = "trade"
	EventOrderModified   EventType = "orderModified"
	EventOrderCancelled  EventType = "orderCancelled"
	EventLag             EventType = "error"
)

// Event is one message pushed through the hub.
type Event struct {
	Type EventType
	Data any
}

// Subscription is a subscriber's read side, plus a Lagged channel that
// is signaled (non-blocking, best-effort) whenever messages were
// dropped before this subscriber could read them.
type Subscription struct {
	id      uint64
	events  chan Event
	lagged  chan struct{}
	hub     *Hub
}

func (s *Subscription) Events() <-chan Event   { return s.events }
func (s *Subscription) Lagged() <-chan struct{} { return s.lagged }

// Close unregisters the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// Hub is the fan-out point. Create with New, Start the dispatch loop,
// Close to stop it.
type Hub struct {
	bufferSize int

	mu          sync.Mutex
	subscribers map[uint64]*Subscription
	nextID      uint64

	publishCh chan Event
	t         tomb.Tomb
}

func New(bufferSize int) *Hub {
	return &Hub{
		bufferSize:  bufferSize,
		subscribers: make(map[uint64]*Subscription),
		publishCh:   make(chan Event, bufferSize),
	}
}

// Start launches the dispatch loop under the hub's tomb.
func (h *Hub) Start() {
	h.t.Go(h.dispatchLoop)
}

// Close stops the dispatch loop and waits for it to exit.
func (h *Hub) Close() error {
	h.t.Kill(nil)
	return h.t.Wait()
}

// Publish enqueues an event for fan-out. Never blocks: if the internal
// queue is full, the event is dropped (the dispatch loop is expected
// to keep up; this only protects a stalled dispatcher from blocking
// the submission pipeline).
func (h *Hub) Publish(evt Event) {
	select {
	case h.publishCh <- evt:
	default:
	}
}

func (h *Hub) dispatchLoop() error {
	for {
		select {
		case <-h.t.Dying():
			return nil
		case evt := <-h.publishCh:
			h.fanOut(evt)
		}
	}
}

func (h *Hub) fanOut(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		select {
		case sub.events <- evt:
		default:
			// Subscriber is behind; signal lag (best-effort, never
			// blocks) and drop this message for them. They resume
			// from whatever is next published.
			select {
			case sub.lagged <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber with the hub's configured
// buffer size.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		events: make(chan Event, h.bufferSize),
		lagged: make(chan struct{}, 1),
		hub:    h,
	}
	h.subscribers[sub.id] = sub
	return sub
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

// SubscriberCount reports the current number of live subscriptions,
// for tests. The ws_connections gauge is maintained separately by the
// WebSocket handler.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
