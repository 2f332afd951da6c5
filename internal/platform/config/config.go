package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pscheid92/impact-snapshot/internal/domain"
	apperrors "github.com/pscheid92/impact-snapshot/internal/platform/errors"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// RollbackURL falls back to the legacy ORKES_URL and then to the documented default.
	RollbackURL       string `env:"ORKES_ROLLBACK_URL"`
	LegacyRollbackURL string `env:"ORKES_URL"`
	SnapshotEndpoint  string `env:"SNAPSHOT_ENDPOINT" default:"/checkout"`

	PushInterval            time.Duration `env:"SNAPSHOT_PUSH_INTERVAL" default:"15s"`
	MaxWebSocketConnections int           `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	MaxConnectionsPerIP     int           `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"50"`

	RedisURL string `env:"REDIS_URL"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" default:"*"`
	InjectRateLimit  float64  `env:"INJECT_RATE_LIMIT" default:"10"`
	InjectRateBurst  int      `env:"INJECT_RATE_BURST" default:"20"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// SnapshotSettings returns the deployment-specific snapshot fields.
func (c *Config) SnapshotSettings() domain.SnapshotSettings {
	return domain.SnapshotSettings{
		Endpoint:    c.SnapshotEndpoint,
		RollbackURL: c.RollbackURL,
	}
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	applyFallbacks(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyFallbacks recovers absent optional settings. None of them is fatal.
func applyFallbacks(cfg *Config) {
	if cfg.RollbackURL != "" {
		return
	}

	missing := apperrors.ConfigMissingError("ORKES_ROLLBACK_URL")
	if cfg.LegacyRollbackURL != "" {
		cfg.RollbackURL = cfg.LegacyRollbackURL
		slog.Info("Using legacy rollback URL", "error_type", missing.Type, "setting", "ORKES_URL")
		return
	}

	cfg.RollbackURL = domain.DefaultRollbackURL
	slog.Info("Rollback URL not configured, using default", "error_type", missing.Type, "rollback_url", cfg.RollbackURL)
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if u, err := url.Parse(cfg.RollbackURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ORKES_ROLLBACK_URL must be an absolute URL, got %q", cfg.RollbackURL)
	}

	if cfg.PushInterval <= 0 {
		return errors.New("SNAPSHOT_PUSH_INTERVAL must be positive")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.MaxConnectionsPerIP < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS_PER_IP must be at least 1")
	}
	if cfg.InjectRateLimit <= 0 || cfg.InjectRateBurst < 1 {
		return errors.New("INJECT_RATE_LIMIT must be positive and INJECT_RATE_BURST at least 1")
	}
	if len(cfg.CORSAllowOrigins) == 0 {
		return errors.New("CORS_ALLOW_ORIGINS must list at least one origin")
	}

	return nil
}
