package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/deadline-reminders/internal/api/middleware"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/service"
)

// ReminderHandler serves manual, non-deadline-triggered sends.
type ReminderHandler struct {
	svc    *service.ReminderService
	logger *zap.Logger
}

func NewReminderHandler(svc *service.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, logger: logger}
}

// Submit handles POST /api/v1/reminders
//
// By default the request waits for the terminal outcome. With ?async=true the
// reminder is queued and 202 is returned at once.
//
// @Summary  Send a reminder
// @Tags     reminders
// @Accept   json
// @Produce  json
// @Param    async  query     bool            false  "Return before delivery"
// @Param    body   body      domain.Payload  true   "Reminder payload"
// @Success  200    {object}  domain.SendResult
// @Success  202    {object}  map[string]string
// @Failure  422    {object}  map[string]string
// @Failure  502    {object}  domain.SendResult
// @Router   /api/v1/reminders [post]
func (h *ReminderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var p domain.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := p.Validate(); err != nil {
		mapError(w, err)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.svc.Submit(p)
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	res, err := h.svc.Send(r.Context(), p)
	if err != nil {
		// Client went away; the reminder stays queued.
		apimw.Logger(r.Context(), h.logger).Debug("reminder request abandoned",
			zap.Error(err),
		)
		return
	}

	status := http.StatusOK
	if !res.Success && !res.Deduplicated && !res.Cancelled {
		apimw.Logger(r.Context(), h.logger).Warn("reminder delivery failed",
			zap.String("error", res.Error),
		)
		status = http.StatusBadGateway
	}
	respondJSON(w, status, res)
}
