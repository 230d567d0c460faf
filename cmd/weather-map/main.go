package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-map/internal/api/http"
	"github.com/i474232898/weather-map/internal/colorramp"
	"github.com/i474232898/weather-map/internal/config"
	"github.com/i474232898/weather-map/internal/logging"
	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/metrics"
	"github.com/i474232898/weather-map/internal/scheduler"
	"github.com/i474232898/weather-map/internal/store"
	"github.com/i474232898/weather-map/internal/weather"
	"github.com/i474232898/weather-map/internal/weather/upstream"
)

const appName = "weather-map"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := logging.New(cfg, appName)
	slog.SetDefault(log)

	if err := mapview.LoadTemplates(); err != nil {
		log.Error("failed to load templates", "err", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Error("failed to register metrics", "err", err)
		os.Exit(1)
	}

	// Shared HTTP client for outbound calls to the observation server.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Upstream client with resilience (backoff + circuit breaker).
	source := upstream.NewClient(httpClient, cfg.UpstreamBaseURL, collector)

	service := weather.NewService(source, weather.FallbackPolicy{MaxHops: cfg.FallbackMaxHops}, collector)
	sessions := store.NewSessions(cfg.SessionIdleTimeout)

	// Scheduler that refreshes the timestamp catalog and sweeps idle sessions.
	sched := scheduler.New(service, sessions, collector, cfg.CatalogRefreshInterval)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:          service,
		Sessions:         sessions,
		Renderer:         mapview.NewRenderer(colorramp.DefaultPalette, cfg.ClusterRadiusPx),
		InitialTimestamp: cfg.InitialTimestamp,
		Metrics:          collector.Handler(),
		Gauge:            collector,
	})

	go func() {
		log.Info("listening", "port", cfg.Port, "upstream", cfg.UpstreamBaseURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
}
