package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/provider"
)

var payload = domain.Payload{
	Source:        domain.SourceChecklist,
	Title:         "Groceries",
	Items:         []domain.EmailItem{{Text: "Buy milk"}},
	Recipient:     &domain.Recipient{Email: "sam@example.com", Name: "Sam"},
	TimeRemaining: "10 minutes",
}

func TestWebhookProvider_Success(t *testing.T) {
	var got provider.SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messageId":"m-1","status":"accepted"}`))
	}))
	defer srv.Close()

	p := provider.NewWebhookProvider(srv.URL, time.Second)
	receipt, err := p.Deliver(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, "m-1", receipt.MessageID)
	assert.Equal(t, "sam@example.com", got.To)
	assert.Equal(t, "Groceries", got.Subject)
	assert.Equal(t, "10 minutes", got.TimeRemaining)
	require.Len(t, got.Items, 1)
}

func TestWebhookProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		terminal bool
	}{
		{"bad request is terminal", http.StatusBadRequest, true},
		{"unprocessable is terminal", http.StatusUnprocessableEntity, true},
		{"server error is transient", http.StatusInternalServerError, false},
		{"bad gateway is transient", http.StatusBadGateway, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := provider.NewWebhookProvider(srv.URL, time.Second).Deliver(context.Background(), payload)
			require.Error(t, err)
			assert.Equal(t, tc.terminal, domain.IsTerminal(err))
		})
	}
}

func TestWebhookProvider_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := provider.NewWebhookProvider(url, time.Second).Deliver(context.Background(), payload)
	require.Error(t, err)
	assert.False(t, domain.IsTerminal(err))
}

func TestWebhookProvider_InvalidPayloadIsTerminalWithoutCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	bad := payload
	bad.Title = ""
	_, err := provider.NewWebhookProvider(srv.URL, time.Second).Deliver(context.Background(), bad)

	assert.True(t, domain.IsTerminal(err))
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
	assert.False(t, called)
}
