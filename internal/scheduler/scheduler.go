package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-map/internal/weather"
)

// CatalogRefresher re-reads the list of available timestamps.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (weather.Catalog, error)
}

// SessionSweeper tears down idle sessions.
type SessionSweeper interface {
	Sweep(now time.Time) int
	Len() int
}

// SessionGauge receives the live session count after each sweep.
type SessionGauge interface {
	SetSessions(n int)
}

// Scheduler periodically refreshes the catalog and sweeps idle sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   CatalogRefresher
	sessions  SessionSweeper
	gauge     SessionGauge
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. gauge may be nil.
func New(catalog CatalogRefresher, sessions SessionSweeper, gauge SessionGauge, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		catalog:   catalog,
		sessions:  sessions,
		gauge:     gauge,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
// The catalog job also runs once immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.RefreshCatalog); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(time.Minute).Do(s.SweepSessions); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RefreshCatalog runs one catalog refresh.
func (s *Scheduler) RefreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cat, err := s.catalog.RefreshCatalog(ctx)
	if err != nil {
		slog.Warn("scheduler: catalog refresh failed", "err", err)
		return
	}
	slog.Debug("scheduler: catalog refreshed", "dates", len(cat.Dates))
}

// SweepSessions runs one idle-session sweep.
func (s *Scheduler) SweepSessions() {
	if s.sessions == nil {
		return
	}
	if n := s.sessions.Sweep(time.Now()); n > 0 {
		slog.Info("scheduler: idle sessions closed", "count", n)
	}
	if s.gauge != nil {
		s.gauge.SetSessions(s.sessions.Len())
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
