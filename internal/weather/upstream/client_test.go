package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveUpstream(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, endpoint+":"+outcome)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	c := NewClient(srv.Client(), srv.URL, obs).WithBackoff(BackoffConfig{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
	return c, obs
}

func TestFetchTemperature(t *testing.T) {
	c, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/temperature" || r.URL.Query().Get("timestamp") != "2024091300" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`[
			{"lat": 24.9, "lon": 67.1, "temp": 31.2, "station": "Karachi", "code": 41780},
			{"lat": 31.5, "lon": 74.3, "temp": null, "station": "Lahore", "code": 41640},
			{"lat": 33.6, "lon": 73.1, "temp": -1.5, "station": "Islamabad", "code": "41571"}
		]`))
	})

	readings, err := c.FetchTemperature(context.Background(), "2024091300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if readings[0].Code != "41780" || readings[0].Temperature != 31.2 || readings[0].StationName != "Karachi" {
		t.Fatalf("unexpected first reading %+v", readings[0])
	}
	if readings[1].Code != "41571" || readings[1].Temperature != -1.5 {
		t.Fatalf("unexpected second reading %+v", readings[1])
	}
	if len(obs.calls) != 1 || obs.calls[0] != "temperature:ok" {
		t.Fatalf("unexpected observations %v", obs.calls)
	}
}

func TestFetchTemperatureEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.FetchTemperature(context.Background(), "2024091300")
	if !errors.Is(err, weather.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestFetchTemperatureNotFoundIsNotRetried(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	c, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, `{"error":"File not found"}`, http.StatusNotFound)
	})

	_, err := c.FetchTemperature(context.Background(), "2024091307")
	if !errors.Is(err, weather.ErrNetwork) || !errors.Is(err, weather.ErrDatasetMissing) {
		t.Fatalf("expected missing dataset network error, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected a single request for 404, got %d", hits)
	}
	if obs.calls[0] != "temperature:404" {
		t.Fatalf("unexpected observations %v", obs.calls)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`["2024091300.geojson"]`))
	})

	files, err := c.ListTimestamps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 2 || len(files) != 1 {
		t.Fatalf("expected retry then success, got hits=%d files=%v", hits, files)
	}
}

func TestMalformedBodyIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.FetchTemperature(context.Background(), "2024091300")
	if !errors.Is(err, weather.ErrNetwork) || !errors.Is(err, errMalformed) {
		t.Fatalf("expected malformed network error, got %v", err)
	}
}

func TestFetchIsobars(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","geometry":{"type":"LineString","coordinates":[[67,24],[68,25]]},
			 "properties":{"level":1008,"label":1008,"label_coords":[67,24]}},
			{"type":"Feature","geometry":{"type":"LineString","coordinates":[[70,30],[71,31]]},
			 "properties":{"level":1004}}
		]}`))
	})

	iso, err := c.FetchIsobars(context.Background(), "2024091300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels := iso.Labels()
	if len(labels) != 1 {
		t.Fatalf("expected 1 label, got %d", len(labels))
	}
	if labels[0].Text != "1008" || labels[0].Latitude != 24 || labels[0].Longitude != 67 {
		t.Fatalf("unexpected label %+v", labels[0])
	}
}

func TestFetchIsobarsEmpty(t *testing.T) {
	for _, body := range []string{`{}`, `{"type":"FeatureCollection","features":[]}`, ``} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		if _, err := c.FetchIsobars(context.Background(), "2024091300"); !errors.Is(err, weather.ErrEmptyDataset) {
			t.Errorf("body %q: expected ErrEmptyDataset, got %v", body, err)
		}
	}
}

func TestFetchStationDetail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "41780" {
			t.Errorf("unexpected code %q", r.URL.Query().Get("code"))
		}
		w.Write([]byte(`{"station_id":41780,"timestamp":2024091300,"svg":"<svg/>",
			"additional_data":{"place_name":"Karachi","air_temp":31.2,"pressure":null,"dew_point":24.0,"cloud_cover_value":4}}`))
	})

	d, err := c.FetchStationDetail(context.Background(), "41780", "2024091300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.PlaceName != "Karachi" || d.SVG != "<svg/>" {
		t.Fatalf("unexpected detail %+v", d)
	}
	if d.AirTemp == nil || *d.AirTemp != 31.2 {
		t.Fatalf("expected air temp 31.2, got %v", d.AirTemp)
	}
	if d.Pressure != nil || d.WindSpeedKnots != nil {
		t.Fatalf("expected absent pressure and wind, got %v %v", d.Pressure, d.WindSpeedKnots)
	}
	if d.CloudCover == nil || *d.CloudCover != 4 {
		t.Fatalf("expected cloud cover 4, got %v", d.CloudCover)
	}
}

func TestCanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ListTimestamps(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStationFailuresDoNotOpenLayerCircuits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/generate_svg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"lat": 24.9, "lon": 67.1, "temp": 31.2, "station": "Karachi", "code": 41780}]`))
	})

	opened := false
	for i := 0; i < 10 && !opened; i++ {
		_, err := c.FetchStationDetail(context.Background(), "41780", "2024091300")
		if err == nil {
			t.Fatal("expected station failure")
		}
		if errors.Is(err, weather.ErrDatasetMissing) {
			t.Fatalf("server error reported as missing dataset: %v", err)
		}
		opened = errors.Is(err, errCircuitOpen)
	}
	if !opened {
		t.Fatal("expected the station circuit to open after repeated failures")
	}

	readings, err := c.FetchTemperature(context.Background(), "2024091300")
	if err != nil || len(readings) != 1 {
		t.Fatalf("temperature should still load, got %v readings err=%v", readings, err)
	}
}
