package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// View is what a session shows after a load: the resolved timestamps of both
// layers, the temperature readings with their range, and the isobars.
type View struct {
	Requested       Timestamp `json:"requested"`
	Timestamp       Timestamp `json:"timestamp"`
	IsobarTimestamp Timestamp `json:"isobarTimestamp,omitempty"`
	Generation      uint64    `json:"generation"`

	Readings []Reading        `json:"-"`
	Range    TemperatureRange `json:"range"`
	Isobars  Isobars          `json:"-"`

	TemperatureState LoadState `json:"temperatureState"`
	IsobarState      LoadState `json:"isobarState"`

	// Problems lists layer failures that did not prevent the view from
	// being shown.
	Problems []error `json:"-"`
}

// Service resolves map views for sessions against an upstream Source.
type Service struct {
	source  Source
	policy  FallbackPolicy
	metrics Metrics

	mu        sync.RWMutex
	catalog   Catalog
	catalogAt time.Time
}

// NewService creates a new Service. A nil metrics disables instrumentation.
func NewService(source Source, policy FallbackPolicy, metrics Metrics) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if policy.MaxHops < 0 {
		policy.MaxHops = 0
	}
	return &Service{
		source:  source,
		policy:  policy,
		metrics: metrics,
	}
}

// RefreshCatalog re-reads the dataset listing and keeps it for Catalog.
func (s *Service) RefreshCatalog(ctx context.Context) (Catalog, error) {
	files, err := s.source.ListTimestamps(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list timestamps: %w", err)
	}
	c := BuildCatalog(files)

	s.mu.Lock()
	s.catalog = c
	s.catalogAt = time.Now()
	s.mu.Unlock()

	slog.Debug("catalog refreshed", "dates", len(c.Dates), "files", len(files))
	return c, nil
}

// Catalog returns the last listing fetched by RefreshCatalog.
func (s *Service) Catalog() (Catalog, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.catalogAt
}

// Load resolves both layers for ts in sess, falling back to the start of the
// day per layer. Starting a load aborts the session's previous one; if a newer
// load starts before this one completes, ErrStaleLoad is returned and the
// session keeps showing the newer result. Load fails only when neither layer
// could be loaded.
func (s *Service) Load(ctx context.Context, sess *Session, ts Timestamp) (*View, error) {
	ctx, gen := sess.begin(ctx)

	var (
		wg     sync.WaitGroup
		temp   resolution[[]Reading]
		iso    resolution[Isobars]
		tempEr error
		isoEr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		temp, tempEr = resolve(ctx, s.policy, LayerTemperature, ts,
			s.temperatureLoader(sess),
			func() { s.fallback(LayerTemperature, ts) })
		s.metrics.ObserveLoad(LayerTemperature, temp.State)
	}()
	go func() {
		defer wg.Done()
		iso, isoEr = resolve(ctx, s.policy, LayerIsobars, ts,
			s.isobarLoader(sess),
			func() { s.fallback(LayerIsobars, ts) })
		s.metrics.ObserveLoad(LayerIsobars, iso.State)
	}()
	wg.Wait()

	if sess.Generation() != gen {
		s.metrics.ObserveStaleLoad()
		slog.Debug("discarding stale load", "session", sess.ID, "timestamp", ts, "generation", gen)
		return nil, fmt.Errorf("load %s: %w", ts, ErrStaleLoad)
	}

	view := &View{
		Requested:        ts,
		Generation:       gen,
		TemperatureState: temp.State,
		IsobarState:      iso.State,
	}

	if tempEr == nil {
		rng, err := ComputeRange(temp.Value)
		if err != nil {
			tempEr = &LoadError{Layer: LayerTemperature, Requested: ts, Attempted: temp.Attempted, Err: err}
			view.TemperatureState = StateFailed
		} else {
			view.Timestamp = temp.Resolved
			view.Readings = temp.Value
			view.Range = rng
		}
	}
	if isoEr == nil {
		view.IsobarTimestamp = iso.Resolved
		view.Isobars = iso.Value
	}

	if tempEr != nil && isoEr != nil {
		sess.finish(gen, nil)
		slog.Warn("load failed", "session", sess.ID, "timestamp", ts, "temperature_err", tempEr, "isobar_err", isoEr)
		return nil, errors.Join(tempEr, isoEr)
	}
	if tempEr != nil {
		view.Problems = append(view.Problems, tempEr)
		view.Timestamp = view.IsobarTimestamp
		slog.Warn("temperature layer unavailable", "session", sess.ID, "timestamp", ts, "err", tempEr)
	}
	if isoEr != nil {
		view.Problems = append(view.Problems, isoEr)
		slog.Warn("isobar layer unavailable", "session", sess.ID, "timestamp", ts, "err", isoEr)
	}

	if !sess.finish(gen, view) {
		s.metrics.ObserveStaleLoad()
		return nil, fmt.Errorf("load %s: %w", ts, ErrStaleLoad)
	}
	return view, nil
}

// StationDetail fetches the popup payload for one station. Failures are
// returned to the caller only and never touch session state.
func (s *Service) StationDetail(ctx context.Context, code string, ts Timestamp) (StationDetail, error) {
	d, err := s.source.FetchStationDetail(ctx, code, ts)
	if err != nil {
		return StationDetail{}, fmt.Errorf("station %s at %s: %w", code, ts, err)
	}
	return d, nil
}

func (s *Service) fallback(layer Layer, ts Timestamp) {
	s.metrics.ObserveFallback(layer)
	slog.Info("falling back to start of day", "layer", layer, "requested", ts, "fallback", ts.StartOfDay())
}

func (s *Service) temperatureLoader(sess *Session) func(context.Context, Timestamp) ([]Reading, error) {
	cache := sess.Cache()
	return func(ctx context.Context, ts Timestamp) ([]Reading, error) {
		if r, ok := cache.Temperature(ts); ok {
			return r, nil
		}
		if sess.knownMissing(LayerTemperature, ts) {
			return nil, fmt.Errorf("temperature %s: %w", ts, ErrDatasetMissing)
		}
		r, err := s.source.FetchTemperature(ctx, ts)
		if err == nil && len(r) == 0 {
			err = fmt.Errorf("temperature %s: %w", ts, ErrEmptyDataset)
		}
		if err != nil {
			rememberIfMissing(sess, LayerTemperature, ts, err)
			return nil, err
		}
		cache.PutTemperature(ts, r)
		return r, nil
	}
}

func (s *Service) isobarLoader(sess *Session) func(context.Context, Timestamp) (Isobars, error) {
	cache := sess.Cache()
	return func(ctx context.Context, ts Timestamp) (Isobars, error) {
		if iso, ok := cache.Isobars(ts); ok {
			return iso, nil
		}
		if sess.knownMissing(LayerIsobars, ts) {
			return Isobars{}, fmt.Errorf("isobars %s: %w", ts, ErrDatasetMissing)
		}
		iso, err := s.source.FetchIsobars(ctx, ts)
		if err == nil && iso.Empty() {
			err = fmt.Errorf("isobars %s: %w", ts, ErrEmptyDataset)
		}
		if err != nil {
			rememberIfMissing(sess, LayerIsobars, ts, err)
			return Isobars{}, err
		}
		cache.PutIsobars(ts, iso)
		return iso, nil
	}
}

// rememberIfMissing records definite absences only. Outages and
// cancellations are retried on the next load.
func rememberIfMissing(sess *Session, layer Layer, ts Timestamp, err error) {
	if errors.Is(err, ErrEmptyDataset) || errors.Is(err, ErrDatasetMissing) {
		sess.rememberMissing(layer, ts)
	}
}
