package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-map/internal/weather"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// UpstreamBaseURL is the observation server serving temperature,
	// isobar and station endpoints.
	UpstreamBaseURL string
	HTTPTimeout     time.Duration

	// CatalogRefreshInterval controls how often the list of available
	// timestamps is re-read.
	CatalogRefreshInterval time.Duration

	// FallbackMaxHops caps start-of-day retries per layer (0 disables fallback).
	FallbackMaxHops int

	// SessionIdleTimeout tears down inactive sessions (0 = never).
	SessionIdleTimeout time.Duration

	ClusterRadiusPx float64

	// DefaultTimestamp overrides the initial selection. Empty means the start
	// of the current 3-hour interval.
	DefaultTimestamp weather.Timestamp
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.UpstreamBaseURL = getenvDefault("UPSTREAM_BASE_URL", "http://localhost:5000")
	u, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid UPSTREAM_BASE_URL %q", cfg.UpstreamBaseURL)
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CatalogRefreshInterval, err = getenvDuration("CATALOG_REFRESH_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.CatalogRefreshInterval <= 0 {
		return nil, fmt.Errorf("invalid CATALOG_REFRESH_INTERVAL: must be positive")
	}
	if cfg.SessionIdleTimeout, err = getenvDuration("SESSION_IDLE_TIMEOUT", "30m"); err != nil {
		return nil, err
	}

	if cfg.FallbackMaxHops, err = getenvInt("FALLBACK_MAX_HOPS", 1); err != nil {
		return nil, err
	}
	if cfg.FallbackMaxHops < 0 {
		return nil, fmt.Errorf("invalid FALLBACK_MAX_HOPS: must not be negative")
	}

	radius, err := getenvInt("CLUSTER_RADIUS_PX", 80)
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("invalid CLUSTER_RADIUS_PX: must be positive")
	}
	cfg.ClusterRadiusPx = float64(radius)

	if s := strings.TrimSpace(os.Getenv("DEFAULT_TIMESTAMP")); s != "" {
		ts, err := weather.ParseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_TIMESTAMP: %w", err)
		}
		cfg.DefaultTimestamp = ts
	}

	return cfg, nil
}

// InitialTimestamp returns the configured default or the start of the
// 3-hour interval containing now.
func (c *AppConfig) InitialTimestamp(now time.Time) weather.Timestamp {
	if c.DefaultTimestamp != "" {
		return c.DefaultTimestamp
	}
	return weather.IntervalStart(now, 3)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
