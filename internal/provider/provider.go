package provider

import (
	"context"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// SendRequest is the JSON body posted to the external provider.
type SendRequest struct {
	To            string             `json:"to,omitempty"`
	Name          string             `json:"name,omitempty"`
	Source        string             `json:"source"`
	Subject       string             `json:"subject"`
	Message       string             `json:"message,omitempty"`
	TimeRemaining string             `json:"timeRemaining,omitempty"`
	Items         []domain.EmailItem `json:"items"`
}

// Receipt maps the provider's acknowledgement.
type Receipt struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Provider delivers one reminder across the network boundary.
//
// Implementations classify failures with domain.StatusError / domain.Terminal:
// client-side rejections are terminal, everything else is retried by the caller.
type Provider interface {
	Deliver(ctx context.Context, p domain.Payload) (*Receipt, error)
}

func newSendRequest(p domain.Payload) SendRequest {
	req := SendRequest{
		Source:        string(p.Source),
		Subject:       p.Title,
		Message:       p.Message,
		TimeRemaining: p.TimeRemaining,
		Items:         p.Items,
	}
	if p.Recipient != nil {
		req.To = p.Recipient.Email
		req.Name = p.Recipient.Name
	}
	return req
}
