package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const serviceName = "unison-comms"

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	started time.Time
	log     *zap.SugaredLogger
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(log *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{started: time.Now(), log: log}
}

type healthResponse struct {
	Status  string  `json:"status"`
	Service string  `json:"service"`
	Uptime  float64 `json:"uptime"`
}

type readyResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports liveness and uptime in seconds.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSONResponse(w, healthResponse{
		Status:  "ok",
		Service: serviceName,
		Uptime:  time.Since(h.started).Seconds(),
	}, h.log)
}

// Ready reports readiness. Adapters are constructed at startup and fall
// back to the stub on error, so a running process is always ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	WriteJSONResponse(w, readyResponse{
		Status:  "ready",
		Service: serviceName,
	}, h.log)
}
