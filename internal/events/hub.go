package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
)

// Subscription receives events until closed.
type Subscription struct {
	ch   chan Event
	hub  *Hub
	once sync.Once
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub broadcasts events to every subscriber. Slow subscribers lose events
// rather than block publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	recent      *ring
	origins     []string
	logger      *slog.Logger
}

// NewHub creates a hub that replays up to replay recent events to new
// listeners. origins are the WebSocket origin patterns accepted by ServeHTTP.
func NewHub(replay int, origins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		recent:      newRing(replay),
		origins:     origins,
		logger:      logger,
	}
}

// Publish delivers ev to all current subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	h.recent.add(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Debug("Event dropped for slow subscriber", "type", ev.Type, "session_id", ev.SessionID)
		}
	}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Event, subscriberBuffer), hub: h}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers returns the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Recent returns the replay buffer, oldest first.
func (h *Hub) Recent() []Event {
	return h.recent.snapshot()
}

// CloseAll ends every subscription.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams events as JSON
// text frames until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sub := h.Subscribe()
	defer sub.Close()
	h.logger.Info("Event listener connected", "ip", r.RemoteAddr, "listeners", h.Subscribers())

	// The feed is one-way; CloseRead handles control frames and cancels ctx
	// when the peer disconnects.
	ctx := ws.CloseRead(r.Context())

	for _, ev := range h.Recent() {
		if err := h.write(ctx, ws, ev); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := h.write(ctx, ws, ev); err != nil {
				return
			}
		case <-ctx.Done():
			h.logger.Info("Event listener disconnected", "ip", r.RemoteAddr)
			return
		}
	}
}

func (h *Hub) write(ctx context.Context, ws *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, ws, ev); err != nil {
		if ctx.Err() == nil {
			h.logger.Debug("WebSocket write error", "error", err)
		}
		return err
	}
	return nil
}
