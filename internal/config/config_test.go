package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
)

var keys = []string{
	"APP_ENV", "LOG_LEVEL", "PORT", "UPSTREAM_BASE_URL", "HTTP_TIMEOUT",
	"CATALOG_REFRESH_INTERVAL", "FALLBACK_MAX_HOPS", "SESSION_IDLE_TIMEOUT",
	"CLUSTER_RADIUS_PX", "DEFAULT_TIMESTAMP",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv(): %v", err)
	}
	if cfg.AppEnv != "dev" || cfg.LogLevel != slog.LevelInfo || cfg.Port != "8080" {
		t.Errorf("unexpected base config %+v", cfg)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.CatalogRefreshInterval != 5*time.Minute {
		t.Errorf("unexpected durations %v %v", cfg.HTTPTimeout, cfg.CatalogRefreshInterval)
	}
	if cfg.FallbackMaxHops != 1 || cfg.ClusterRadiusPx != 80 || cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("unexpected tuning %+v", cfg)
	}
	if cfg.DefaultTimestamp != "" {
		t.Errorf("expected no default timestamp, got %q", cfg.DefaultTimestamp)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("FALLBACK_MAX_HOPS", "0")
	t.Setenv("SESSION_IDLE_TIMEOUT", "0s")
	t.Setenv("DEFAULT_TIMESTAMP", "2024091307")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv(): %v", err)
	}
	if cfg.AppEnv != "prod" || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected env/level %q %v", cfg.AppEnv, cfg.LogLevel)
	}
	if cfg.FallbackMaxHops != 0 || cfg.SessionIdleTimeout != 0 {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if got := cfg.InitialTimestamp(time.Now()); got != "2024091307" {
		t.Errorf("InitialTimestamp() = %q", got)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_ENV":                  "staging",
		"LOG_LEVEL":                "loud",
		"UPSTREAM_BASE_URL":        "not a url",
		"HTTP_TIMEOUT":             "ten",
		"CATALOG_REFRESH_INTERVAL": "0s",
		"FALLBACK_MAX_HOPS":        "-1",
		"CLUSTER_RADIUS_PX":        "0",
		"DEFAULT_TIMESTAMP":        "2024-09-13",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("FromEnv() with %s=%q: err = %v", key, value, err)
			}
		})
	}
}

func TestInitialTimestampUsesThreeHourSlots(t *testing.T) {
	cfg := &AppConfig{}
	now := time.Date(2024, 9, 13, 8, 59, 0, 0, time.UTC)
	if got := cfg.InitialTimestamp(now); got != weather.Timestamp("2024091306") {
		t.Fatalf("InitialTimestamp() = %q; want 2024091306", got)
	}
}
