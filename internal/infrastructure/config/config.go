package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds everything the client core reads from the environment.
// APIBaseURL is the one externally supplied base URL for all backend calls;
// without it no network operation can be constructed.
type Config struct {
	APIBaseURL string `env:"API_BASE_URL"`
	LogLevel   string `env:"LOG_LEVEL, default=info"`
	LogPretty  bool   `env:"LOG_PRETTY, default=false"`

	// TokenFile is where the bearer token persists between cold starts when
	// Redis is not configured.
	TokenFile string `env:"TOKEN_FILE, default=.master-app-token"`

	Redis RedisConfig

	// PollInterval drives the order-feed and verification pollers.
	PollInterval time.Duration `env:"POLL_INTERVAL, default=15s"`

	// RefreshWorkers sizes the background order-refresh pool.
	RefreshWorkers int `env:"REFRESH_WORKERS, default=4"`

	// DiagAddr, when set, serves health probes and metrics on that address.
	DiagAddr string `env:"DIAG_ADDR"`

	// BotToken enables local init-data signature validation when set.
	// InitDataTTL bounds init-data age for that validation (0 disables).
	BotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	InitDataTTL time.Duration `env:"INIT_DATA_TTL, default=24h"`
}

// RedisConfig selects the Redis-backed token store when Addr is non-empty.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// A missing API base URL is a fatal startup condition.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("load config: API_BASE_URL is required")
	}
	return &cfg, nil
}
