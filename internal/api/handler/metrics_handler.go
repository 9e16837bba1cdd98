package handler

import (
	"net/http"

	"github.com/notifyhub/deadline-reminders/internal/service"
)

// MetricsHandler serves a human-readable JSON engine snapshot.
// Raw Prometheus metrics are available at /metrics via promhttp and are
// separate from this endpoint.
type MetricsHandler struct {
	svc *service.ReminderService
}

func NewMetricsHandler(svc *service.ReminderService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time engine snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  service.Stats
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Stats())
}
