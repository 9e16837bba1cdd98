package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/api"
	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/config"
	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/metrics"
	"github.com/notifyhub/deadline-reminders/internal/provider"
	"github.com/notifyhub/deadline-reminders/internal/service"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	srv  *httptest.Server
	svc  *service.ReminderService
	prov *provider.MockProvider
}

func newEnv(t *testing.T, script ...error) *env {
	t.Helper()
	cfg := &config.Config{
		DedupCooldown:       4 * time.Minute,
		LedgerGCHorizon:     10 * time.Minute,
		LedgerSweepInterval: time.Minute,
		MaxAttempts:         3,
		RetryBaseDelay:      time.Second,
		SentLogSize:         200,
		CatchUpWindow:       time.Minute,
		RecoveryThrottle:    10 * time.Second,
	}
	reg := prometheus.NewRegistry()
	prov := provider.NewMockProvider(script...)
	svc := service.New(cfg, service.Dependencies{
		Provider: prov,
		Clock:    clock.NewFake(t0),
		Metrics:  metrics.New(reg),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, svc.Start(context.Background()))

	srv := httptest.NewServer(api.NewRouter(svc, reg, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Shutdown(context.Background())
	})
	return &env{srv: srv, svc: svc, prov: prov}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var validReminder = map[string]any{
	"source": "checklist",
	"title":  "Launch",
	"items":  []map[string]any{{"text": "Ship"}},
}

func TestSubmitReminder(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/v1/reminders", validReminder)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[domain.SendResult](t, resp)
	assert.True(t, res.Success)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	resp = e.do(t, http.MethodPost, "/api/v1/reminders", validReminder)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.SendResult](t, resp).Deduplicated)
	assert.Equal(t, 1, e.prov.Calls())
}

func TestSubmitReminder_Async(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/api/v1/reminders?async=true", validReminder)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Eventually(t, func() bool { return e.prov.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSubmitReminder_Errors(t *testing.T) {
	e := newEnv(t, domain.StatusError(400, errors.New("rejected")))

	resp := e.do(t, http.MethodPost, "/api/v1/reminders", map[string]any{"source": "fax", "title": "x", "message": "m"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/reminders", bytes.NewBufferString("{"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/reminders", validReminder)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, decode[domain.SendResult](t, resp).Error, "rejected")
}

func TestWatchLifecycle(t *testing.T) {
	e := newEnv(t)

	body := map[string]any{
		"source": "kanban",
		"title":  "Board",
		"items": []map[string]any{
			{"item_id": "c1", "text": "Card", "deadline": t0.Add(45 * time.Minute).Format(time.RFC3339)},
		},
	}
	resp := e.do(t, http.MethodPut, "/api/v1/watches/board-1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[map[string]any](t, resp)
	assert.Equal(t, "board-1", got["watch_id"])
	assert.EqualValues(t, 4, got["armed"])

	resp = e.do(t, http.MethodGet, "/api/v1/watches", nil)
	list := decode[struct {
		Data  []domain.WatchConfig `json:"data"`
		Total int                  `json:"total"`
	}](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "board-1", list.Data[0].WatchID)

	resp = e.do(t, http.MethodDelete, "/api/v1/watches/board-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, e.svc.Watches())
}

func TestWatch_InvalidConfig(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPut, "/api/v1/watches/x", map[string]any{"source": "kanban"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSentLogEndpoints(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/api/v1/reminders", validReminder)

	resp := e.do(t, http.MethodGet, "/api/v1/sent-log", nil)
	log := decode[struct {
		Data  []domain.SentRecord `json:"data"`
		Total int                 `json:"total"`
	}](t, resp)
	require.Equal(t, 1, log.Total)
	assert.True(t, log.Data[0].Success)

	resp = e.do(t, http.MethodDelete, "/api/v1/sent-log", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, e.svc.SentLog())

	resp = e.do(t, http.MethodGet, "/api/v1/sent-log/archive", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestKillSwitchAndVisibility(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPut, "/api/v1/kill-switch", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, e.svc.Enabled())

	resp = e.do(t, http.MethodPost, "/api/v1/reminders", validReminder)
	res := decode[domain.SendResult](t, resp)
	assert.True(t, res.Success)
	assert.True(t, res.Deduplicated)
	assert.Zero(t, e.prov.Calls())

	resp = e.do(t, http.MethodPut, "/api/v1/kill-switch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/visibility", nil)
	assert.Equal(t, map[string]bool{"recovered": true}, decode[map[string]bool](t, resp))
	resp = e.do(t, http.MethodPost, "/api/v1/visibility", nil)
	assert.Equal(t, map[string]bool{"recovered": false}, decode[map[string]bool](t, resp))
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/metrics", nil)
	stats := decode[service.Stats](t, resp)
	assert.True(t, stats.Enabled)

	resp = e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
