package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "AIzaTest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.ScoreBackend != ScoreBackendSQLite {
		t.Errorf("ScoreBackend = %q", cfg.ScoreBackend)
	}
	if cfg.GeocodeTimeout != 10*time.Second {
		t.Errorf("GeocodeTimeout = %v", cfg.GeocodeTimeout)
	}
	if cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("SessionIdleTTL = %v", cfg.SessionIdleTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "AIzaTest")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SCORE_BACKEND", "redis")
	t.Setenv("GEOCODE_TIMEOUT", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.ScoreBackend != ScoreBackendRedis {
		t.Errorf("ScoreBackend = %q", cfg.ScoreBackend)
	}
	if cfg.GeocodeTimeout != 1500*time.Millisecond {
		t.Errorf("GeocodeTimeout = %v", cfg.GeocodeTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing api key", map[string]string{"GOOGLE_MAPS_API_KEY": ""}},
		{"bad backend", map[string]string{"GOOGLE_MAPS_API_KEY": "AIzaTest", "SCORE_BACKEND": "memcached"}},
		{"zero qps", map[string]string{"GOOGLE_MAPS_API_KEY": "AIzaTest", "GEOCODE_QPS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
