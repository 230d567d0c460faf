package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
)

func TestDatasetCacheSlotsAreIndependent(t *testing.T) {
	c := NewDatasetCache()

	if _, ok := c.Temperature("2024091300"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.PutTemperature("2024091300", []weather.Reading{{Code: "a", Temperature: 1}})
	c.PutIsobars("2024091303", weather.Isobars{})

	if _, ok := c.Isobars("2024091300"); ok {
		t.Fatal("isobar layer of 00 must still be empty")
	}
	if _, ok := c.Temperature("2024091303"); ok {
		t.Fatal("temperature layer of 03 must still be empty")
	}
	r, ok := c.Temperature("2024091300")
	if !ok || len(r) != 1 || r[0].Code != "a" {
		t.Fatalf("unexpected readings %v, %v", r, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 slots, got %d", c.Len())
	}
}

func TestDatasetCachePutReplacesWholeSlot(t *testing.T) {
	c := NewDatasetCache()
	in := []weather.Reading{{Temperature: 1}, {Temperature: 2}}
	c.PutTemperature("2024091300", in)
	in[0].Temperature = 99

	c.PutTemperature("2024091300", []weather.Reading{{Temperature: 5}})
	r, _ := c.Temperature("2024091300")
	if len(r) != 1 || r[0].Temperature != 5 {
		t.Fatalf("expected replaced slot, got %v", r)
	}
}

func TestDatasetCacheConcurrentWriters(t *testing.T) {
	c := NewDatasetCache()
	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		ts := weather.Timestamp("20240913" + []string{"00", "03", "06", "09"}[i%4])
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			c.PutTemperature(ts, []weather.Reading{{Temperature: v}, {Temperature: v}})
			if r, ok := c.Temperature(ts); !ok || len(r) != 2 || r[0].Temperature != r[1].Temperature {
				t.Errorf("torn slot %s: %v", ts, r)
			}
		}(float64(i))
	}
	wg.Wait()
}

func TestSessionsLifecycle(t *testing.T) {
	s := NewSessions(time.Hour)

	sess := s.Create()
	got, err := s.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get(%s) = %v, %v", sess.ID, got, err)
	}

	if _, err := s.Get("not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	again, created := s.GetOrCreate(sess.ID)
	if created || again != sess {
		t.Fatal("expected existing session")
	}
	fresh, created := s.GetOrCreate("")
	if !created || fresh.ID == sess.ID {
		t.Fatal("expected new session")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}

	s.Delete(fresh.ID)
	if _, err := s.Get(fresh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}

func TestSessionsSweep(t *testing.T) {
	s := NewSessions(time.Minute)
	old := s.Create()
	old.Touch(time.Now().Add(-2 * time.Minute))
	live := s.Create()

	if n := s.Sweep(time.Now()); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, err := s.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("expired session still present")
	}
	if _, err := s.Get(live.ID); err != nil {
		t.Fatalf("live session removed: %v", err)
	}
}

func TestSessionsSweepDisabled(t *testing.T) {
	s := NewSessions(0)
	sess := s.Create()
	sess.Touch(time.Now().Add(-24 * time.Hour))
	if n := s.Sweep(time.Now()); n != 0 {
		t.Fatalf("expected no sweep when disabled, got %d", n)
	}
}
