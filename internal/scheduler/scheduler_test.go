package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
)

type fakeCatalog struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCatalog) RefreshCatalog(ctx context.Context) (weather.Catalog, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return weather.Catalog{}, errors.New("refresh without deadline")
	}
	return weather.BuildCatalog([]string{"2024091300.geojson"}), f.err
}

type fakeSessions struct {
	swept int
	live  int
}

func (f *fakeSessions) Sweep(time.Time) int {
	f.swept++
	f.live--
	return 1
}

func (f *fakeSessions) Len() int { return f.live }

type gauge struct{ last int }

func (g *gauge) SetSessions(n int) { g.last = n }

func TestSweepSessionsUpdatesGauge(t *testing.T) {
	sessions := &fakeSessions{live: 3}
	g := &gauge{last: -1}
	s := New(&fakeCatalog{}, sessions, g, time.Minute)

	s.SweepSessions()

	if sessions.swept != 1 || g.last != 2 {
		t.Fatalf("expected one sweep and gauge 2, got %d sweeps gauge %d", sessions.swept, g.last)
	}
}

func TestRefreshCatalogToleratesErrors(t *testing.T) {
	cat := &fakeCatalog{err: weather.ErrNetwork}
	s := New(cat, nil, nil, time.Minute)

	s.RefreshCatalog()
	s.SweepSessions()

	if cat.calls.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", cat.calls.Load())
	}
}

func TestStartRefreshesImmediately(t *testing.T) {
	cat := &fakeCatalog{}
	s := New(cat, &fakeSessions{}, nil, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Start(): %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for cat.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cat.calls.Load() == 0 {
		t.Fatal("catalog was not refreshed on start")
	}
}
