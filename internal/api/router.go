package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/api/handler"
	apimw "github.com/notifyhub/deadline-reminders/internal/api/middleware"
	"github.com/notifyhub/deadline-reminders/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.ReminderService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	rh := handler.NewReminderHandler(svc, logger)
	wh := handler.NewWatchHandler(svc, logger)
	sh := handler.NewSentLogHandler(svc)
	ch := handler.NewControlHandler(svc, logger)
	mh := handler.NewMetricsHandler(svc)
	hh := handler.NewHealthHandler(svc.Enabled)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reminders", rh.Submit)

		r.Get("/watches", wh.List)
		r.Put("/watches/{id}", wh.Put)
		r.Delete("/watches/{id}", wh.Delete)

		// /sent-log/archive is a literal path, not an id; register it first.
		r.Get("/sent-log/archive", sh.Archive)
		r.Get("/sent-log", sh.List)
		r.Delete("/sent-log", sh.Clear)

		r.Post("/visibility", ch.Visibility)
		r.Put("/kill-switch", ch.KillSwitch)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
