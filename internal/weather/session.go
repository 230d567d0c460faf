package weather

import (
	"context"
	"sync"
	"time"
)

// Session is the state of one viewer: its dataset cache, the request
// generation counter and the view currently on screen.
type Session struct {
	ID string

	cache DatasetCache

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *View
	lastSeen   time.Time

	// missing records layers the upstream reported as absent, so reloads
	// at another zoom go straight to the fallback.
	missing map[Layer]map[Timestamp]bool
}

// NewSession creates a session backed by cache.
func NewSession(id string, cache DatasetCache) *Session {
	return &Session{
		ID:       id,
		cache:    cache,
		lastSeen: time.Now(),
	}
}

// Cache returns the session's dataset cache.
func (s *Session) Cache() DatasetCache { return s.cache }

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Current returns the view on screen, or nil before the first load.
func (s *Session) Current() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Generation returns the latest issued request generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// begin issues a new generation and aborts the in-flight load, if any.
func (s *Session) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.generation
}

// finish publishes v if gen is still the latest generation. It reports
// whether v was published. A nil v only releases the load.
func (s *Session) finish(gen uint64, v *View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if v != nil {
		s.current = v
	}
	return true
}

// Close aborts any in-flight load.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) rememberMissing(layer Layer, ts Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing == nil {
		s.missing = make(map[Layer]map[Timestamp]bool)
	}
	if s.missing[layer] == nil {
		s.missing[layer] = make(map[Timestamp]bool)
	}
	s.missing[layer][ts] = true
}

func (s *Session) knownMissing(layer Layer, ts Timestamp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missing[layer][ts]
}
