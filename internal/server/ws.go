package server

import (
	"net/http"
	"sync"
	"time"

	"perfect-traders-go/internal/market"
	"perfect-traders-go/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const subscriberBuffer = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is same-origin in the demo deployment; no origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PriceHub fans the simulator's quote snapshots out to WebSocket
// subscribers. Subscribers that fall behind are dropped rather than
// allowed to stall the tick.
type PriceHub struct {
	mu       sync.Mutex
	subs     map[chan []models.Symbol]struct{}
	closed   bool
	registry *market.Registry
	logger   *zap.Logger
}

// NewPriceHub creates a PriceHub over the given registry.
func NewPriceHub(registry *market.Registry, logger *zap.Logger) *PriceHub {
	return &PriceHub{
		subs:     make(map[chan []models.Symbol]struct{}),
		registry: registry,
		logger:   logger.Named("price-hub"),
	}
}

// Broadcast pushes the current quote snapshot to every subscriber.
// Intended to be wired as the simulator's tick callback.
func (h *PriceHub) Broadcast() {
	snapshot := h.registry.Snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub <- snapshot:
		default:
			// Slow subscriber: drop it instead of blocking the tick.
			delete(h.subs, sub)
			close(sub)
			h.logger.Warn("Dropped slow price stream subscriber")
		}
	}
}

// Serve upgrades the request and streams quote snapshots until the client
// disconnects or the hub closes.
func (h *PriceHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.subscribe()
	if sub == nil {
		_ = conn.Close()
		return
	}
	h.logger.Info("Price stream subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice closes and answer control frames.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unsubscribe(sub)
				return
			}
		}
	}()

	// Send the current snapshot immediately so clients render without
	// waiting for the next tick.
	if err := conn.WriteJSON(h.registry.Snapshot()); err != nil {
		h.unsubscribe(sub)
		_ = conn.Close()
		return
	}

	for snapshot := range sub {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snapshot); err != nil {
			h.unsubscribe(sub)
			break
		}
	}
	_ = conn.Close()
	h.logger.Info("Price stream subscriber disconnected")
}

// Close shuts down every subscriber channel. Further subscriptions are
// rejected.
func (h *PriceHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub)
	}
}

func (h *PriceHub) subscribe() chan []models.Symbol {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	sub := make(chan []models.Symbol, subscriberBuffer)
	h.subs[sub] = struct{}{}
	return sub
}

func (h *PriceHub) unsubscribe(sub chan []models.Symbol) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub)
	}
}
