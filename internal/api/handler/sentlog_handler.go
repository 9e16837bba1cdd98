package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/service"
)

// SentLogHandler exposes the delivery audit trail.
type SentLogHandler struct {
	svc *service.ReminderService
}

func NewSentLogHandler(svc *service.ReminderService) *SentLogHandler {
	return &SentLogHandler{svc: svc}
}

// List handles GET /api/v1/sent-log
//
// @Summary  In-memory audit trail, most recent first
// @Tags     sent-log
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/sent-log [get]
func (h *SentLogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.SentLog()
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": len(entries),
	})
}

// Clear handles DELETE /api/v1/sent-log
//
// @Summary  Clear the in-memory audit trail
// @Tags     sent-log
// @Success  204
// @Router   /api/v1/sent-log [delete]
func (h *SentLogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearSentLog()
	w.WriteHeader(http.StatusNoContent)
}

// Archive handles GET /api/v1/sent-log/archive
//
// @Summary  Page through the persistent audit archive
// @Tags     sent-log
// @Produce  json
// @Param    source   query     string  false  "Filter by source"
// @Param    success  query     bool    false  "Filter by outcome"
// @Param    from     query     string  false  "Sent after (RFC3339)"
// @Param    to       query     string  false  "Sent before (RFC3339)"
// @Param    page     query     int     false  "Page number (default 1)"
// @Param    limit    query     int     false  "Items per page (default 20, max 100)"
// @Success  200      {object}  map[string]any
// @Failure  501      {object}  map[string]string
// @Router   /api/v1/sent-log/archive [get]
func (h *SentLogHandler) Archive(w http.ResponseWriter, r *http.Request) {
	filter := parseArchiveFilter(r)
	records, total, err := h.svc.Archive(r.Context(), filter)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func parseArchiveFilter(r *http.Request) domain.ArchiveFilter {
	q := r.URL.Query()
	filter := domain.ArchiveFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("source"); s != "" {
		src := domain.Source(s)
		filter.Source = &src
	}
	if s := q.Get("success"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			filter.Success = &b
		}
	}
	if f := q.Get("from"); f != "" {
		if t, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	return filter
}
