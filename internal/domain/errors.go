package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrInvalidSource   = errors.New("invalid source: must be checklist, kanban, or reminder-widget")
	ErrInvalidTitle    = errors.New("title must not be empty")
	ErrNoItems         = errors.New("payload must carry at least one item or a message")
	ErrInvalidWatchID  = errors.New("watch id must not be empty")
	ErrQueueClosed     = errors.New("queue is closed")
	ErrServiceStopped  = errors.New("reminder service stopped")
	ErrArchiveDisabled = errors.New("sent-record archive is not configured")
)

// DeliveryError is returned by providers when a transport attempt fails.
// Terminal errors are never retried.
type DeliveryError struct {
	StatusCode int
	Terminal   bool
	Err        error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failure (status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failure: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Terminal marks err as a failure that retrying cannot fix.
func Terminal(err error) error {
	return &DeliveryError{Terminal: true, Err: err}
}

// IsTerminal reports whether err carries a terminal DeliveryError.
// Validation sentinels are terminal as well: a malformed payload stays malformed.
func IsTerminal(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Terminal
	}
	return errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrNoItems)
}

// StatusError classifies an HTTP-like status code: 4xx is terminal, anything else transient.
func StatusError(code int, err error) error {
	return &DeliveryError{StatusCode: code, Terminal: code >= 400 && code < 500, Err: err}
}
