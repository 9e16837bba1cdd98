package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by PROVIDER.
const (
	ProviderWebhook  = "webhook"
	ProviderTelegram = "telegram"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; DATABASE_URL is optional and enables
// the sent-record archive when set.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database (archive only)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Delivery transport
	Provider        string
	ProviderBaseURL string
	ProviderTimeout time.Duration
	TelegramToken   string
	TelegramChatID  int64

	// Transport rate limit: sends per second and burst
	RateLimit float64
	RateBurst int

	// Cooldown ledger
	DedupCooldown       time.Duration
	LedgerGCHorizon     time.Duration
	LedgerSweepInterval time.Duration

	// Retry policy: attempt n waits RetryBaseDelay * 2^n before the next one
	MaxAttempts    int
	RetryBaseDelay time.Duration

	SentLogSize int

	// Deadline watcher and visibility recovery
	CatchUpWindow    time.Duration
	RecoveryThrottle time.Duration
	RecoverySchedule string

	// Declarative watch file; empty disables it
	WatchFile string

	// Global kill switch initial state
	RemindersDisabled bool
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),

		Provider:        strings.ToLower(getEnv("PROVIDER", ProviderWebhook)),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://webhook.site/your-uuid-here"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:  getInt64("TELEGRAM_CHAT_ID", 0),

		RateLimit: getFloat("RATE_LIMIT", 5),
		RateBurst: getInt("RATE_BURST", 1),

		DedupCooldown:       getDuration("DEDUP_COOLDOWN", 4*time.Minute),
		LedgerGCHorizon:     getDuration("LEDGER_GC_HORIZON", 10*time.Minute),
		LedgerSweepInterval: getDuration("LEDGER_SWEEP_INTERVAL", time.Minute),

		MaxAttempts:    getInt("MAX_ATTEMPTS", 3),
		RetryBaseDelay: getDuration("RETRY_BASE_DELAY", time.Second),

		SentLogSize: getInt("SENT_LOG_SIZE", 200),

		CatchUpWindow:    getDuration("CATCH_UP_WINDOW", 60*time.Second),
		RecoveryThrottle: getDuration("RECOVERY_THROTTLE", 10*time.Second),
		RecoverySchedule: os.Getenv("RECOVERY_SCHEDULE"),

		WatchFile: os.Getenv("WATCH_FILE"),

		RemindersDisabled: getBool("REMINDERS_DISABLED", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderWebhook:
		if c.ProviderBaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required for the webhook provider")
		}
	case ProviderTelegram:
		if c.TelegramToken == "" || c.TelegramChatID == 0 {
			return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are required for the telegram provider")
		}
	default:
		return fmt.Errorf("unknown PROVIDER %q", c.Provider)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}
	if c.DedupCooldown <= 0 {
		return fmt.Errorf("DEDUP_COOLDOWN must be positive")
	}
	if c.LedgerSweepInterval <= 0 {
		return fmt.Errorf("LEDGER_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
