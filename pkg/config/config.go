// Package config loads runtime configuration from the environment, reading a
// local .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-driven setting shared by the binaries.
type Config struct {
	// Remote product store.
	APIURL           string        `envconfig:"CATALOG_API_URL" default:"https://api.escuelajs.co/api/v1"`
	RequestTimeout   time.Duration `envconfig:"CATALOG_REQUEST_TIMEOUT" default:"15s"`
	RateLimit        float64       `envconfig:"CATALOG_RATE_LIMIT" default:"5"`
	RateBurst        int           `envconfig:"CATALOG_RATE_BURST" default:"5"`
	BreakerThreshold int           `envconfig:"CATALOG_BREAKER_THRESHOLD" default:"5"`
	BreakerTimeout   time.Duration `envconfig:"CATALOG_BREAKER_TIMEOUT" default:"30s"`

	// View and export.
	PageSize  int    `envconfig:"CATALOG_PAGE_SIZE" default:"10"`
	ExportDir string `envconfig:"CATALOG_EXPORT_DIR" default:"."`

	// HTTP surface.
	Port       string `envconfig:"PORT" default:"8080"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	// Change events. Empty NATSURL disables publishing.
	NATSURL      string `envconfig:"NATS_URL"`
	EventSubject string `envconfig:"CATALOG_EVENT_SUBJECT" default:"catalog.products"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads .env files (if present) and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: CATALOG_API_URL is empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: CATALOG_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("config: CATALOG_RATE_LIMIT must be positive, got %g", c.RateLimit)
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the process logger writing to w in the configured format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
