package notify

import (
	"context"
	"errors"
	"sync"

	"tubeclone/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerClient = 8
	maxTotalConns     = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrClientFull = errors.New("client connection limit reached")
)

// Hub maps client id -> open live view connections.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Register adds a connection for clientID.
func (h *Hub) Register(clientID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}

	m, ok := h.conns[clientID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[clientID] = m
	}
	if len(m) >= maxConnsPerClient {
		return nil, ErrClientFull
	}

	client := newClient(h, conn, clientID)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its Send channel; calling it
// twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.ClientID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	close(client.Send)
	h.totalConns--
	middleware.ActiveWebSockets.Dec()
	if len(m) == 0 {
		delete(h.conns, client.ClientID)
	}
}

// Deliver sends payload to every connection of clientID.
func (h *Hub) Deliver(clientID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.conns[clientID] {
		c.TrySend(payload)
		n++
	}
	return n
}

// Connections reports the number of open connections for clientID.
func (h *Hub) Connections(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[clientID])
}

// Shutdown closes every Send channel. Each WritePump then sends a
// going-away close frame, the only write made outside that pump.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientID, clients := range h.conns {
		for client := range clients {
			client.goingAway.Store(true)
			close(client.Send)
		}
		middleware.Logger.Debug("closed live view connections", "client_id", clientID, "count", len(clients))
		middleware.ActiveWebSockets.Sub(float64(len(clients)))
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
