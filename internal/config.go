package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	BackendBadger   = "badger"
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

type Config struct {
	StoreBackend        string        `env:"STORE_BACKEND,default=badger"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,default=./data/echoes"`
	DeviceFilepath      string        `env:"DEVICE_FILEPATH,default=./data/device"`
	SupabaseURL         string        `env:"SUPABASE_URL"`
	SupabaseKey         string        `env:"SUPABASE_KEY"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	PollInterval        time.Duration `env:"POLL_INTERVAL,default=20s"`
	NotificationLimit   int           `env:"NOTIFICATION_LIMIT,default=20"`
	FeedRefreshSchedule string        `env:"FEED_REFRESH_SCHEDULE,default=@every 1m"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=1s"`
	StoreTimeout        time.Duration `env:"STORE_TIMEOUT,default=10s"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO"`
	DebugPort           int           `env:"DEBUG_PORT,default=8081"`
	Colours             bool          `env:"COLOURS,default=true"`
}

// Validate checks what env tags can't express: backend-specific requirements and ranges.
func (c Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case BackendBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required for the %s backend", BackendBadger)
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the %s backend", BackendSupabase)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s, got %q",
			BackendBadger, BackendSupabase, BackendPostgres, c.StoreBackend)
	}
	if c.DeviceFilepath == "" {
		return fmt.Errorf("DEVICE_FILEPATH is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.NotificationLimit <= 0 {
		return fmt.Errorf("NOTIFICATION_LIMIT must be positive, got %d", c.NotificationLimit)
	}
	if _, err := cron.ParseStandard(c.FeedRefreshSchedule); err != nil {
		return fmt.Errorf("FEED_REFRESH_SCHEDULE %q: %w", c.FeedRefreshSchedule, err)
	}
	return nil
}

// Backend is the normalized STORE_BACKEND value.
func (c Config) Backend() string {
	return strings.ToLower(c.StoreBackend)
}
