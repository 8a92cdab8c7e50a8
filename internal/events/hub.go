package events

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultQueueSize is the number of events buffered per subscriber
	DefaultQueueSize = 64

	writeWait = 5 * time.Second
)

var (
	ErrClosed  = errors.New("event hub closed")
	ErrDropped = errors.New("event dropped")
)

// Hub fans events out to subscribers. Each subscriber owns a bounded queue;
// Emit never waits for a slow subscriber, it drops the event instead.
type Hub struct {
	queueSize int
	upgrader  websocket.Upgrader

	mutex       sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewHub creates a hub with the given per-subscriber queue size
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Hub{
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Accept any origin, the control page may be opened through any local address
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[chan Event]struct{}),
	}
}

// Emit queues the event for every subscriber without blocking
func (h *Hub) Emit(name string, payload any) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.closed {
		return ErrClosed
	}

	ev := Event{Name: name, Payload: payload}
	dropped := 0
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		return fmt.Errorf("%w: %s for %d subscriber(s)", ErrDropped, name, dropped)
	}
	return nil
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.queueSize)

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	h.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mutex.Lock()
			defer h.mutex.Unlock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber; later Emit calls return ErrClosed
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams events as JSON
// until either side goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	slog.Debug("Event subscriber connected", "remote", r.RemoteAddr)

	// Reading is required to process control frames and to notice disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("Event subscriber write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-gone:
			slog.Debug("Event subscriber disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}
