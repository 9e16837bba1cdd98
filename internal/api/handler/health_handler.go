package handler

import "net/http"

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	enabled func() bool
}

// NewHealthHandler reports the kill switch state alongside liveness.
func NewHealthHandler(enabled func() bool) *HealthHandler {
	return &HealthHandler{enabled: enabled}
}

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "reminders_enabled": h.enabled()})
}
