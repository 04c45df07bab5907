package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/channel"
	"github.com/unisonhq/unison-comms/internal/models"
)

// defaultPersonID identifies the implicit on-device user when a request
// does not name one.
const defaultPersonID = "local-user"

// CommsHandler serves the /comms/* message operations by resolving the
// requested channel to an adapter and merging its result into the
// response payload.
type CommsHandler struct {
	registry *channel.Registry
	log      *zap.SugaredLogger
}

// NewCommsHandler creates a new CommsHandler instance.
func NewCommsHandler(registry *channel.Registry, log *zap.SugaredLogger) *CommsHandler {
	return &CommsHandler{registry: registry, log: log}
}

type checkRequest struct {
	PersonID string `json:"person_id"`
	Channel  string `json:"channel"`
}

type checkResponse struct {
	OK       bool                       `json:"ok"`
	PersonID string                     `json:"person_id"`
	Provider string                     `json:"provider"`
	Messages []models.NormalizedMessage `json:"messages"`
}

// Check returns the current normalized messages for a channel.
func (h *CommsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	personID := req.PersonID
	if personID == "" {
		personID = defaultPersonID
	}
	channelName := req.Channel
	if channelName == "" {
		channelName = channel.Email
	}

	adapter := h.registry.Resolve(channelName)
	messages := adapter.FetchMessages(r.Context(), channelName)

	provider := h.registry.RemoteProvider()
	if channelName == channel.Unison {
		provider = channel.Unison
	}

	response := checkResponse{
		OK:       true,
		PersonID: personID,
		Provider: provider,
		Messages: messages,
	}
	if response.Messages == nil {
		response.Messages = []models.NormalizedMessage{}
	}

	WriteJSONResponse(w, response, h.log)
}

type replyRequest struct {
	PersonID  string `json:"person_id"`
	Channel   string `json:"channel"`
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
	// Optional explicit recipients; remote providers fall back to
	// cached thread participants when absent.
	Recipients []string `json:"recipients"`
}

type replyResponse struct {
	models.ReplyResult
	OK           bool   `json:"ok"`
	PersonID     string `json:"person_id"`
	OriginIntent string `json:"origin_intent"`
}

// Reply sends a reply into an existing thread.
func (h *CommsHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	personID := req.PersonID
	if personID == "" {
		personID = defaultPersonID
	}
	if req.ThreadID == "" {
		http.Error(w, "thread_id required", http.StatusBadRequest)
		return
	}
	if req.MessageID == "" {
		http.Error(w, "message_id required", http.StatusBadRequest)
		return
	}
	channelName := req.Channel
	if channelName == "" {
		channelName = channel.Email
	}

	adapter := h.registry.Resolve(channelName)
	result := adapter.SendReply(r.Context(), personID, req.ThreadID, req.MessageID, req.Body, req.Recipients)
	if result.Status != models.StatusSent {
		h.log.Warnw("reply not sent", "thread_id", req.ThreadID, "provider", result.Provider, "error", result.Error)
	}

	WriteJSONResponse(w, replyResponse{
		ReplyResult:  result,
		OK:           true,
		PersonID:     personID,
		OriginIntent: "comms.reply",
	}, h.log)
}

type composeRequest struct {
	PersonID   string   `json:"person_id"`
	Channel    string   `json:"channel"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

type composeResponse struct {
	models.ComposeResult
	OK           bool     `json:"ok"`
	PersonID     string   `json:"person_id"`
	Channel      string   `json:"channel"`
	Recipients   []string `json:"recipients"`
	Subject      string   `json:"subject"`
	OriginIntent string   `json:"origin_intent"`
}

// Compose sends a new message on a channel.
func (h *CommsHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	personID := req.PersonID
	if personID == "" {
		personID = defaultPersonID
	}
	if len(req.Recipients) == 0 {
		http.Error(w, "recipients required", http.StatusBadRequest)
		return
	}
	if req.Subject == "" {
		http.Error(w, "subject required", http.StatusBadRequest)
		return
	}
	channelName := req.Channel
	if channelName == "" {
		channelName = channel.Email
	}

	adapter := h.registry.Resolve(channelName)
	result := adapter.SendCompose(r.Context(), personID, channelName, req.Recipients, req.Subject, req.Body)
	if result.Status != models.StatusSent {
		h.log.Warnw("compose not sent", "channel", channelName, "provider", result.Provider, "error", result.Error)
	}

	WriteJSONResponse(w, composeResponse{
		ComposeResult: result,
		OK:            true,
		PersonID:      personID,
		Channel:       channelName,
		Recipients:    req.Recipients,
		Subject:       req.Subject,
		OriginIntent:  "comms.compose",
	}, h.log)
}

type summarizeRequest struct {
	PersonID string `json:"person_id"`
	Window   string `json:"window"`
}

type summarizeResponse struct {
	OK           bool   `json:"ok"`
	PersonID     string `json:"person_id"`
	Window       string `json:"window"`
	Summary      string `json:"summary"`
	OriginIntent string `json:"origin_intent"`
}

// Summarize returns a canned summary over a time window.
// TODO: derive the summary from actual message priorities once the
// orchestrator defines the window semantics.
func (h *CommsHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	personID := req.PersonID
	if personID == "" {
		personID = defaultPersonID
	}
	window := req.Window
	if window == "" {
		window = "today"
	}

	WriteJSONResponse(w, summarizeResponse{
		OK:           true,
		PersonID:     personID,
		Window:       window,
		Summary:      fmt.Sprintf("Summary for %s: 1 important thread, 2 low-priority threads.", window),
		OriginIntent: "comms.summarize",
	}, h.log)
}
