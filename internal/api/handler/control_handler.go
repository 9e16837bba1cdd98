package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/service"
)

// ControlHandler serves the kill switch and the visibility trigger.
type ControlHandler struct {
	svc    *service.ReminderService
	logger *zap.Logger
}

func NewControlHandler(svc *service.ReminderService, logger *zap.Logger) *ControlHandler {
	return &ControlHandler{svc: svc, logger: logger}
}

type killSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

// KillSwitch handles PUT /api/v1/kill-switch
//
// @Summary  Enable or disable all reminder dispatch
// @Tags     system
// @Accept   json
// @Produce  json
// @Param    body  body      killSwitchRequest  true  "{\"enabled\": false}"
// @Success  200   {object}  map[string]bool
// @Router   /api/v1/kill-switch [put]
func (h *ControlHandler) KillSwitch(w http.ResponseWriter, r *http.Request) {
	var req killSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	h.svc.SetEnabled(*req.Enabled)
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": h.svc.Enabled()})
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// Visibility handles POST /api/v1/visibility
//
// An empty body counts as "became visible". Recovery passes are throttled;
// "recovered" is false when this trigger was suppressed.
//
// @Summary  Report a host visibility change
// @Tags     system
// @Accept   json
// @Produce  json
// @Success  200  {object}  map[string]bool
// @Router   /api/v1/visibility [post]
func (h *ControlHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Visible != nil && !*req.Visible {
		respondJSON(w, http.StatusOK, map[string]bool{"recovered": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"recovered": h.svc.Foreground()})
}
