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
	CacheDir    string `envconfig:"CACHE_DIR" required:"true"`
	CatalogDB   string `envconfig:"CATALOG_DB" default:"catalog.db"`
	MaxParallel int    `envconfig:"MAX_PARALLEL" default:"4"`

	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"0s"`
	UserAgent    string        `envconfig:"USER_AGENT" default:"soundvault/1.0"`
	RemoteToken  string        `envconfig:"REMOTE_TOKEN"`

	PlayerCommand string   `envconfig:"PLAYER_COMMAND" default:"ffplay"`
	PlayerArgs    []string `envconfig:"PLAYER_ARGS" default:"-nodisp,-autoexit"`

	LogLevel         string `envconfig:"LOG_LEVEL" default:"INFO"`
	WebhookURL       string `envconfig:"WEBHOOK_URL"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"true"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"soundvault"`

	API struct {
		Username string `split_words:"true"`
		Password string `split_words:"true"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"0s"`
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
