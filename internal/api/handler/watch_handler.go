package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/deadline-reminders/internal/api/middleware"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/service"
)

// WatchHandler manages deadline watches.
type WatchHandler struct {
	svc    *service.ReminderService
	logger *zap.Logger
}

func NewWatchHandler(svc *service.ReminderService, logger *zap.Logger) *WatchHandler {
	return &WatchHandler{svc: svc, logger: logger}
}

// Put handles PUT /api/v1/watches/{id}
//
// Registering an existing id replaces its timers, so the same call serves
// both creation and rescheduling.
//
// @Summary  Register or reschedule a watch
// @Tags     watches
// @Accept   json
// @Produce  json
// @Param    id    path      string              true  "Watch ID"
// @Param    body  body      domain.WatchConfig  true  "Watch configuration"
// @Success  200   {object}  map[string]any
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/watches/{id} [put]
func (h *WatchHandler) Put(w http.ResponseWriter, r *http.Request) {
	var cfg domain.WatchConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cfg.WatchID = chi.URLParam(r, "id")

	if _, err := h.svc.Watch(cfg); err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("register watch failed",
			zap.String("watch_id", cfg.WatchID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"watch_id": cfg.WatchID,
		"armed":    h.svc.Pending(cfg.WatchID),
		"enabled":  h.svc.Enabled(),
	})
}

// Delete handles DELETE /api/v1/watches/{id}
//
// Always 204: cancelling an unknown id still blocks late submissions under it.
//
// @Summary  Cancel a watch
// @Tags     watches
// @Param    id  path  string  true  "Watch ID"
// @Success  204
// @Router   /api/v1/watches/{id} [delete]
func (h *WatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.svc.Cancel(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/watches
//
// @Summary  List registered watches
// @Tags     watches
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/watches [get]
func (h *WatchHandler) List(w http.ResponseWriter, r *http.Request) {
	watches := h.svc.Watches()
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  watches,
		"total": len(watches),
	})
}
