package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/channel"
	ws "github.com/unisonhq/unison-comms/internal/websocket"
)

// NewRouter creates the HTTP handler for the comms gateway.
func NewRouter(registry *channel.Registry, hub *ws.Hub, pollInterval time.Duration, log *zap.SugaredLogger) http.Handler {
	commsHandler := NewCommsHandler(registry, log)
	healthHandler := NewHealthHandler(log)
	streamHandler := NewStreamHandler(registry, hub, pollInterval, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/health", requireMethod(http.MethodGet, healthHandler.Health))
	mux.Handle("/readyz", requireMethod(http.MethodGet, healthHandler.Ready))

	mux.Handle("/comms/check", requireMethod(http.MethodPost, commsHandler.Check))
	mux.Handle("/comms/reply", requireMethod(http.MethodPost, commsHandler.Reply))
	mux.Handle("/comms/compose", requireMethod(http.MethodPost, commsHandler.Compose))
	mux.Handle("/comms/summarize", requireMethod(http.MethodPost, commsHandler.Summarize))

	// WebSocket endpoint; the upgrade handshake is a GET.
	mux.Handle("/comms/stream", http.HandlerFunc(streamHandler.Handle))

	return mux
}

func requireMethod(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "unison-comms API is running")
}
