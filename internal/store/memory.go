package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-map/internal/weather"
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("session not found")
)

// DatasetCache is a concurrency-safe in-memory implementation of
// weather.DatasetCache. Slots are never evicted; the cache lives as long as
// its session.
type DatasetCache struct {
	mu sync.RWMutex

	// key: timestamp, value: loaded layers
	data map[weather.Timestamp]*weather.Dataset
}

// NewDatasetCache creates an empty cache.
func NewDatasetCache() *DatasetCache {
	return &DatasetCache{
		data: make(map[weather.Timestamp]*weather.Dataset),
	}
}

// Temperature returns the cached readings for ts.
func (c *DatasetCache) Temperature(ts weather.Timestamp) ([]weather.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ds, ok := c.data[ts]
	if !ok || ds.Temperature == nil {
		return nil, false
	}
	return ds.Temperature, true
}

// PutTemperature replaces the temperature layer of slot ts.
func (c *DatasetCache) PutTemperature(ts weather.Timestamp, readings []weather.Reading) {
	cp := make([]weather.Reading, len(readings))
	copy(cp, readings)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot(ts).Temperature = cp
}

// Isobars returns the cached isobar layer for ts.
func (c *DatasetCache) Isobars(ts weather.Timestamp) (weather.Isobars, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ds, ok := c.data[ts]
	if !ok || ds.Isobars == nil {
		return weather.Isobars{}, false
	}
	return *ds.Isobars, true
}

// PutIsobars replaces the isobar layer of slot ts.
func (c *DatasetCache) PutIsobars(ts weather.Timestamp, isobars weather.Isobars) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot(ts).Isobars = &isobars
}

// Len returns the number of timestamp slots.
func (c *DatasetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// slot must be called with mu held for writing.
func (c *DatasetCache) slot(ts weather.Timestamp) *weather.Dataset {
	ds, ok := c.data[ts]
	if !ok {
		ds = &weather.Dataset{}
		c.data[ts] = ds
	}
	return ds
}

// Sessions is the registry of live viewer sessions.
type Sessions struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*weather.Session

	// idleTimeout tears down sessions not seen for this long (0 = never)
	idleTimeout time.Duration
}

// NewSessions creates a registry. If idleTimeout is <= 0, sessions live
// until the process exits.
func NewSessions(idleTimeout time.Duration) *Sessions {
	return &Sessions{
		data:        make(map[string]*weather.Session),
		idleTimeout: idleTimeout,
	}
}

// Create starts a new session with an empty cache.
func (s *Sessions) Create() *weather.Session {
	sess := weather.NewSession(uuid.NewString(), NewDatasetCache())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = sess
	return sess
}

// Get returns the session for id and marks it active.
func (s *Sessions) Get(id string) (*weather.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	sess, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.Touch(time.Now())
	return sess, nil
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown.
// The boolean reports whether a new session was created.
func (s *Sessions) GetOrCreate(id string) (*weather.Session, bool) {
	if sess, err := s.Get(id); err == nil {
		return sess, false
	}
	return s.Create(), true
}

// Delete tears down a session and aborts its in-flight load.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Sweep tears down sessions idle since before now-idleTimeout and returns how
// many were removed.
func (s *Sessions) Sweep(now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTimeout)

	var expired []*weather.Session
	s.mu.Lock()
	for id, sess := range s.data {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.data, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	return len(expired)
}
