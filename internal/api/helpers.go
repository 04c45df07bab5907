package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WriteJSONResponse writes payload as a 200 JSON response. It returns false
// when encoding fails, after a 500 has been sent.
func WriteJSONResponse(w http.ResponseWriter, payload any, log *zap.SugaredLogger) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorw("failed to encode response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
	return true
}

// DecodeJSONBody decodes a JSON request body into dst, replying 400 on
// malformed or missing input. Returns true on success.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}
