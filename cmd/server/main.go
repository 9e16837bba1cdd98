package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/api"
	"github.com/notifyhub/deadline-reminders/internal/config"
	"github.com/notifyhub/deadline-reminders/internal/db"
	"github.com/notifyhub/deadline-reminders/internal/metrics"
	"github.com/notifyhub/deadline-reminders/internal/provider"
	"github.com/notifyhub/deadline-reminders/internal/ratelimiter"
	"github.com/notifyhub/deadline-reminders/internal/repository"
	"github.com/notifyhub/deadline-reminders/internal/service"
	"github.com/notifyhub/deadline-reminders/internal/watchfile"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// ---- optional archive database ----
	var archive repository.SentRecordRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		archive = repository.NewPgSentRecordRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set; sent records are kept in memory only")
	}

	// ---- transport ----
	var prov provider.Provider
	switch cfg.Provider {
	case config.ProviderTelegram:
		tg, err := provider.NewTelegramProvider(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Fatal("failed to create telegram provider", zap.Error(err))
		}
		prov = tg
	default:
		prov = provider.NewWebhookProvider(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	}
	logger.Info("delivery provider selected", zap.String("provider", cfg.Provider))

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.New(cfg, service.Dependencies{
		Provider: prov,
		Limiter:  ratelimiter.New(cfg.RateLimit, cfg.RateBurst),
		Archive:  archive,
		Metrics:  m,
		Logger:   logger,
	})

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if err := svc.Start(workerCtx); err != nil {
		logger.Fatal("failed to start reminder service", zap.Error(err))
	}

	// ---- declarative watches ----
	if cfg.WatchFile != "" {
		loader := watchfile.NewLoader(cfg.WatchFile, svc, logger.Named("watchfile"))
		if err := loader.Apply(); err != nil {
			logger.Error("failed to apply watch file", zap.String("path", cfg.WatchFile), zap.Error(err))
		}
		go func() {
			if err := loader.Run(workerCtx); err != nil {
				logger.Error("watch file reloader stopped", zap.Error(err))
			}
		}()
	}

	// ---- visibility signals ----
	// SIGCONT arrives when a stopped process is resumed; SIGUSR1 lets an
	// operator or supervisor request a recovery pass explicitly.
	wake := make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGCONT, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-workerCtx.Done():
				return
			case sig := <-wake:
				logger.Info("visibility signal received", zap.String("signal", sig.String()))
				svc.Foreground()
			}
		}
	}()

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify ready failed", zap.Error(err))
	} else if ok {
		logger.Info("notified systemd readiness")
	}

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop timers, resolve queued reminders and wait for the runner.
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("reminder service shutdown error", zap.Error(err))
	}

	// 3. Stop the sweeper and file reloader.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
