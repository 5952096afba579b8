package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	CacheDir    string        `envconfig:"CACHE_DIR" default:"media_cache"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BackoffBase time.Duration `envconfig:"BACKOFF_BASE" default:"1s"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	MaxParallel int           `envconfig:"MAX_PARALLEL" default:"5"`
	UserAgent   string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; mediacache/1.0)"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFile  string `envconfig:"LOG_FILE" default:"mediacache.log"`

	DBPath     string `envconfig:"DB_PATH" default:"mediacache.db"`
	WebhookURL string `envconfig:"WEBHOOK_URL"`

	TelemetryEnabled bool `envconfig:"TELEMETRY_ENABLED" default:"true"`

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"5m"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
