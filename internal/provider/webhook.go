package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// WebhookProvider delivers reminders by POSTing JSON to a configured URL.
// The base URL is injected from config so tests can point to a local mock.
type WebhookProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookProvider(baseURL string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver posts the reminder and expects a 2xx response with a JSON body
// containing messageId. 4xx responses are terminal; transport errors and
// other statuses are transient.
func (p *WebhookProvider) Deliver(ctx context.Context, payload domain.Payload) (*Receipt, error) {
	if err := payload.Validate(); err != nil {
		return nil, domain.Terminal(err)
	}

	body, err := json.Marshal(newSendRequest(payload))
	if err != nil {
		return nil, domain.Terminal(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Terminal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.StatusError(resp.StatusCode,
			fmt.Errorf("unexpected provider status: %s", bytes.TrimSpace(snippet)))
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &receipt, nil
}

// compile-time check that WebhookProvider implements Provider
var _ Provider = (*WebhookProvider)(nil)
