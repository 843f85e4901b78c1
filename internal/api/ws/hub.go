package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"leverguard/internal/events"
	"leverguard/internal/metrics"
	"leverguard/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultSendBuffer is the per-subscriber outbound queue length
	DefaultSendBuffer = 256
)

var _ events.Sink = (*Hub)(nil)

// Hub tracks live alert subscribers and delivers alerts to them
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	bufSize  int
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHub creates a hub. allowedOrigins empty or containing "*" accepts any origin.
func NewHub(bufSize int, allowedOrigins []string, log *logger.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultSendBuffer
	}
	h := &Hub{
		clients: make(map[string]*Client),
		bufSize: bufSize,
		log:     log.With("component", "ws_hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP upgrades the connection and registers the subscriber
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.bufSize),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	c.ready.Store(true)
	metrics.WebSocketSubscribers.Set(float64(len(h.clients)))
	h.log.Infow("Subscriber connected", "client_id", c.id, "subscribers", len(h.clients))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	c.ready.Store(false)
	delete(h.clients, c.id)
	close(c.send)
	metrics.WebSocketSubscribers.Set(float64(len(h.clients)))
	h.log.Infow("Subscriber disconnected", "client_id", c.id, "subscribers", len(h.clients))
}

func (h *Hub) Name() string { return "websocket" }

// Send queues the payload for every ready subscriber without blocking.
// Subscribers with a full queue miss this alert; they can recover it from the alert log.
func (h *Hub) Send(_ context.Context, d events.Delivery) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.ready.Load() {
			continue
		}
		if !c.enqueue(d.Payload) {
			metrics.WebSocketDropped.Inc()
			h.log.Debugw("Subscriber buffer full, alert skipped", "client_id", c.id, "alert_id", d.Alert.ID)
		}
	}
	return nil
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
