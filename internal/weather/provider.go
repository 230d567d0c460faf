package weather

import "context"

// Source abstracts the upstream observation server.
type Source interface {
	// ListTimestamps returns dataset filenames such as "2024091300.geojson".
	ListTimestamps(ctx context.Context) ([]string, error)
	FetchTemperature(ctx context.Context, ts Timestamp) ([]Reading, error)
	FetchIsobars(ctx context.Context, ts Timestamp) (Isobars, error)
	FetchStationDetail(ctx context.Context, code string, ts Timestamp) (StationDetail, error)
}

// DatasetCache is the per-session store of loaded layers, keyed by timestamp.
// Each Put replaces the slot as a whole.
type DatasetCache interface {
	Temperature(ts Timestamp) ([]Reading, bool)
	PutTemperature(ts Timestamp, readings []Reading)
	Isobars(ts Timestamp) (Isobars, bool)
	PutIsobars(ts Timestamp, isobars Isobars)
}

// Metrics receives load outcomes. A nil Metrics is allowed.
type Metrics interface {
	ObserveLoad(layer Layer, state LoadState)
	ObserveFallback(layer Layer)
	ObserveStaleLoad()
}

type noopMetrics struct{}

func (noopMetrics) ObserveLoad(Layer, LoadState) {}
func (noopMetrics) ObserveFallback(Layer)        {}
func (noopMetrics) ObserveStaleLoad()            {}
