package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/homefix/calbook/libs/config"
	"github.com/homefix/calbook/services/booking-service/internal/calendar"
	"github.com/homefix/calbook/services/booking-service/internal/outbox"
	"github.com/spf13/cobra"
)

const (
	backendGoogle = "google"
	backendMemory = "memory"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"booking-service"`
	Port        string `env:"PORT" envDefault:"8083"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9093"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	CalendarBackend       string        `env:"CALENDAR_BACKEND" envDefault:"google"`
	GoogleCalendarID      string        `env:"GOOGLE_CALENDAR_ID"`
	GoogleCredentialsFile string        `env:"GOOGLE_CREDENTIALS_FILE"`
	CalendarTimeout       time.Duration `env:"CALENDAR_TIMEOUT" envDefault:"10s"`
	SlotCheckConcurrency  int           `env:"SLOT_CHECK_CONCURRENCY" envDefault:"4"`

	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID"`
	FirebaseJWKSURL   string        `env:"FIREBASE_JWKS_URL" envDefault:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`
	JWKSCacheTTL      time.Duration `env:"JWKS_CACHE_TTL" envDefault:"1h"`

	DatabaseURL         string        `env:"DATABASE_URL"`
	KafkaBrokers        string        `env:"KAFKA_BROKERS"`
	OutboxRetention     time.Duration `env:"OUTBOX_RETENTION" envDefault:"168h"`
	OutboxPurgeSchedule string        `env:"OUTBOX_PURGE_SCHEDULE" envDefault:"@hourly"`

	RedisAddr          string   `env:"REDIS_ADDR"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func envFiles(cmd *cobra.Command) []string {
	files, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return nil
	}
	return files
}

// parseConfig reads the environment without checking that the serving
// settings are complete.
func parseConfig(files []string) (Config, error) {
	var cfg Config
	if err := config.Load(&cfg, files...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfig(files []string) (Config, error) {
	cfg, err := parseConfig(files)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	} else if err := config.ValidatePort("PORT", c.Port); err != nil {
		errs = append(errs, err)
	}
	if err := config.ValidatePort("GRPC_PORT", c.GRPCPort); err != nil {
		errs = append(errs, err)
	}
	switch c.CalendarBackend {
	case backendMemory:
	case backendGoogle:
		if c.GoogleCalendarID == "" {
			errs = append(errs, errors.New("GOOGLE_CALENDAR_ID is required for the google calendar backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_BACKEND: unknown backend %q", c.CalendarBackend))
	}
	if c.CalendarTimeout <= 0 {
		errs = append(errs, errors.New("CALENDAR_TIMEOUT must be positive"))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if err := outbox.ValidateSchedule(c.OutboxPurgeSchedule); err != nil {
		errs = append(errs, fmt.Errorf("OUTBOX_PURGE_SCHEDULE: %w", err))
	}
	return errors.Join(errs...)
}

// newCalendar builds the configured backend behind the per-call timeout and
// tracing decorator.
func newCalendar(ctx context.Context, cfg Config, logger *slog.Logger) (calendar.Client, error) {
	var client calendar.Client
	switch cfg.CalendarBackend {
	case backendMemory:
		logger.Warn("using in-memory calendar; bookings are not persisted")
		client = calendar.NewMemoryClient()
	default:
		gc, err := calendar.NewGoogleClient(ctx, cfg.GoogleCalendarID, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("google calendar client: %w", err)
		}
		client = gc
	}
	return calendar.Instrument(client, cfg.CalendarTimeout), nil
}
