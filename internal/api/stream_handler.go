package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/channel"
	"github.com/unisonhq/unison-comms/internal/models"
	"github.com/unisonhq/unison-comms/internal/notify"
	ws "github.com/unisonhq/unison-comms/internal/websocket"
)

// StreamHandler handles the /comms/stream endpoint for real-time updates.
// One watch loop runs per person while they have at least one connection;
// it polls the local store for appended messages and, when a real mail
// provider is configured, listens for mailbox growth.
type StreamHandler struct {
	registry     *channel.Registry
	hub          *ws.Hub
	pollInterval time.Duration
	log          *zap.SugaredLogger

	mu           sync.Mutex
	watchCancels map[string]context.CancelFunc
}

// NewStreamHandler creates a new StreamHandler instance. A non-positive
// pollInterval selects the notifier default.
func NewStreamHandler(registry *channel.Registry, hub *ws.Hub, pollInterval time.Duration, log *zap.SugaredLogger) *StreamHandler {
	return &StreamHandler{
		registry:     registry,
		hub:          hub,
		pollInterval: pollInterval,
		log:          log,
		watchCancels: make(map[string]context.CancelFunc),
	}
}

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The service binds to loopback; origins are trusted.
		return true
	},
}

// StreamEvent is one JSON frame pushed to stream subscribers.
type StreamEvent struct {
	Type     string                     `json:"type"`
	Channel  string                     `json:"channel,omitempty"`
	Messages []models.NormalizedMessage `json:"messages,omitempty"`
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with
// the Hub. The person is identified by the person_id query parameter.
func (h *StreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	personID := r.URL.Query().Get("person_id")
	if personID == "" {
		personID = defaultPersonID
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("failed to upgrade stream connection", "person_id", personID, "error", err)
		return
	}

	client := h.hub.Register(personID, conn)
	if client == nil {
		h.log.Warnw("stream connection rejected", "person_id", personID)
		return
	}

	h.ensureWatcher(personID)

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(personID, client)
}

// ensureWatcher starts the per-person watch loop if one is not already running.
func (h *StreamHandler) ensureWatcher(personID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.watchCancels[personID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.watchCancels[personID] = cancel

	go func() {
		h.watch(ctx, personID)

		h.mu.Lock()
		delete(h.watchCancels, personID)
		h.mu.Unlock()
	}()
}

// watch forwards store appends and mailbox growth to the person's
// connections until ctx is cancelled. A single goroutine does all the
// sending so frames never interleave.
func (h *StreamHandler) watch(ctx context.Context, personID string) {
	events := notify.NewWatcher(h.registry.Unison(), h.pollInterval).Watch(ctx)

	var mailbox chan struct{}
	if mail := h.registry.Watchable(); mail != nil {
		mailbox = make(chan struct{}, 1)
		go mail.WatchMailbox(ctx, func() {
			select {
			case mailbox <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.send(personID, StreamEvent{
				Type:     "comms.message",
				Channel:  channel.Unison,
				Messages: ev.Messages,
			})
		case <-mailbox:
			h.send(personID, StreamEvent{
				Type:    "comms.mailbox",
				Channel: channel.Email,
			})
		}
	}
}

func (h *StreamHandler) send(personID string, event StreamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Errorw("failed to encode stream event", "person_id", personID, "error", err)
		return
	}
	h.hub.Send(personID, payload)
}

// readLoop reads messages from the WebSocket until the connection is closed.
// When the last connection for a person closes, the watch loop is stopped.
func (h *StreamHandler) readLoop(personID string, client *ws.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(personID, client)

	if h.hub.ActiveConnections(personID) == 0 {
		h.mu.Lock()
		if cancel, exists := h.watchCancels[personID]; exists {
			cancel()
			delete(h.watchCancels, personID)
		}
		h.mu.Unlock()
	}
}
