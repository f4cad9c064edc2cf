package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ScoreBackendSQLite = "sqlite"
	ScoreBackendRedis  = "redis"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/mapquiz.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	ScoreBackend string `env:"SCORE_BACKEND" envDefault:"sqlite"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	GoogleMapsAPIKey string        `env:"GOOGLE_MAPS_API_KEY,required,notEmpty"`
	GeocodeTimeout   time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"10s"`
	GeocodeQPS       int           `env:"GEOCODE_QPS" envDefault:"10"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.ScoreBackend {
	case ScoreBackendSQLite, ScoreBackendRedis:
	default:
		return nil, fmt.Errorf("SCORE_BACKEND must be %q or %q, got %q",
			ScoreBackendSQLite, ScoreBackendRedis, cfg.ScoreBackend)
	}
	if cfg.GeocodeQPS <= 0 {
		return nil, fmt.Errorf("GEOCODE_QPS must be positive, got %d", cfg.GeocodeQPS)
	}
	return &cfg, nil
}
