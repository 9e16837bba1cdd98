package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrInvalidWatchID):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrServiceStopped),
		errors.Is(err, domain.ErrQueueClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrArchiveDisabled):
		respondError(w, http.StatusNotImplemented, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
