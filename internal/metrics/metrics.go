// Package metrics exposes viewer counters in Prometheus format.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-map/internal/weather"
	"github.com/i474232898/weather-map/internal/weather/upstream"
)

// Collector bundles the viewer's Prometheus metrics. It receives load
// outcomes from the weather service and request outcomes from the upstream
// client.
type Collector struct {
	gatherer prometheus.Gatherer

	UpstreamRequests  *prometheus.CounterVec
	UpstreamDurations *prometheus.HistogramVec

	Loads      *prometheus.CounterVec
	Fallbacks  *prometheus.CounterVec
	StaleLoads prometheus.Counter

	ActiveSessions prometheus.Gauge
}

var (
	_ weather.Metrics   = (*Collector)(nil)
	_ upstream.Observer = (*Collector)(nil)
)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weathermap_upstream_requests_total",
		Help: "Requests to the observation server, labeled by endpoint and outcome.",
	}, []string{"endpoint", "outcome"}), "weathermap_upstream_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weathermap_upstream_request_duration_seconds",
		Help:    "Observation server latency in seconds, retries included.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"}), "weathermap_upstream_request_duration_seconds")
	if err != nil {
		return nil, err
	}
	loads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weathermap_layer_loads_total",
		Help: "Finished layer loads, labeled by layer and final state.",
	}, []string{"layer", "state"}), "weathermap_layer_loads_total")
	if err != nil {
		return nil, err
	}
	fallbacks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weathermap_fallbacks_total",
		Help: "Start-of-day fallbacks taken, labeled by layer.",
	}, []string{"layer"}), "weathermap_fallbacks_total")
	if err != nil {
		return nil, err
	}
	stale, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weathermap_stale_loads_total",
		Help: "Loads discarded because a newer request superseded them.",
	}), "weathermap_stale_loads_total")
	if err != nil {
		return nil, err
	}
	sessions, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weathermap_sessions_active",
		Help: "Current number of live viewer sessions.",
	}), "weathermap_sessions_active")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		UpstreamRequests:  requests,
		UpstreamDurations: durations,
		Loads:             loads,
		Fallbacks:         fallbacks,
		StaleLoads:        stale,
		ActiveSessions:    sessions,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveUpstream(endpoint, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	c.UpstreamDurations.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveLoad(layer weather.Layer, state weather.LoadState) {
	if c == nil {
		return
	}
	c.Loads.WithLabelValues(string(layer), state.String()).Inc()
}

func (c *Collector) ObserveFallback(layer weather.Layer) {
	if c == nil {
		return
	}
	c.Fallbacks.WithLabelValues(string(layer)).Inc()
}

func (c *Collector) ObserveStaleLoad() {
	if c == nil {
		return
	}
	c.StaleLoads.Inc()
}

// SetSessions records the number of live sessions.
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

// register adds col to reg, reusing an already registered collector of the
// same type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
