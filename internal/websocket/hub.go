package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// Hub manages active WebSocket connections per person.
// It supports multiple connections per person (e.g., multiple tabs).
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]map[*Client]struct{} // personID -> set of clients
	maxPerPerson int
	log          *zap.SugaredLogger
}

// NewHub creates a new Hub with a per-person connection limit.
func NewHub(maxPerPerson int, log *zap.SugaredLogger) *Hub {
	if maxPerPerson <= 0 {
		maxPerPerson = 10
	}
	return &Hub{
		clients:      make(map[string]map[*Client]struct{}),
		maxPerPerson: maxPerPerson,
		log:          log,
	}
}

// Register adds a WebSocket connection for the given person.
// If the per-person limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Register(personID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	personClients, ok := h.clients[personID]
	if !ok {
		personClients = make(map[*Client]struct{})
		h.clients[personID] = personClients
	}

	if len(personClients) >= h.maxPerPerson {
		h.log.Warnw("person exceeded max websocket connections, closing new connection",
			"person_id", personID, "max", h.maxPerPerson)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			// Zero deadline is best effort.
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	personClients[client] = struct{}{}
	return client
}

// Unregister removes a client for the given person and closes the connection.
func (h *Hub) Unregister(personID string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	personClients, ok := h.clients[personID]
	if !ok {
		_ = client.conn.Close()
		return
	}

	delete(personClients, client)

	if len(personClients) == 0 {
		delete(h.clients, personID)
	}

	_ = client.conn.Close()
}

// Send broadcasts a message to all active clients for the person.
func (h *Hub) Send(personID string, msg []byte) {
	h.mu.RLock()
	personClients := h.clients[personID]
	h.mu.RUnlock()

	if len(personClients) == 0 {
		return
	}

	for client := range personClients {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warnw("failed to write websocket message",
				"person_id", personID, "error", err)
			// Best-effort cleanup: unregister this client.
			go h.Unregister(personID, client)
		}
	}
}

// ActiveConnections returns the number of active WebSocket connections for a person.
func (h *Hub) ActiveConnections(personID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[personID])
}
