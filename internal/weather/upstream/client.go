// Package upstream talks to the observation server that publishes decoded
// SYNOP temperatures, isobar contours and station plots.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-map/internal/weather"
)

// Endpoint names used for metrics labels.
const (
	EndpointList        = "list"
	EndpointTemperature = "temperature"
	EndpointIsobars     = "isobars"
	EndpointStation     = "station"
)

// errMalformed marks an undecodable body. It is treated like a failed fetch.
var errMalformed = errors.New("malformed response")

// Observer receives one call per upstream request.
type Observer interface {
	ObserveUpstream(endpoint, outcome string, elapsed time.Duration)
}

// Client implements weather.Source over HTTP.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	// keyed by endpoint; station failures never open the layer circuits
	circuits map[string]*gobreaker.CircuitBreaker
	observer Observer
}

var _ weather.Source = (*Client)(nil)

// NewClient creates a client for the server at baseURL. observer may be nil.
func NewClient(client *http.Client, baseURL string, observer Observer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      2,
				InitialInterval: 250 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		circuits: map[string]*gobreaker.CircuitBreaker{
			EndpointList:        newBreaker("upstream-" + EndpointList),
			EndpointTemperature: newBreaker("upstream-" + EndpointTemperature),
			EndpointIsobars:     newBreaker("upstream-" + EndpointIsobars),
			EndpointStation:     newBreaker("upstream-" + EndpointStation),
		},
		observer: observer,
	}
}

// WithBackoff overrides the retry settings.
func (c *Client) WithBackoff(b BackoffConfig) *Client {
	c.httpCfg.Backoff = b
	return c
}

// ListTimestamps returns the dataset filenames published upstream.
func (c *Client) ListTimestamps(ctx context.Context) ([]string, error) {
	var files []string
	if err := c.getJSON(ctx, EndpointList, "/list_data_files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// stationCode accepts codes encoded either as JSON numbers or strings.
type stationCode string

func (s *stationCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = stationCode(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = stationCode(n.String())
	return nil
}

// FetchTemperature returns the readings for ts. Entries without a temperature
// are dropped; an empty result is weather.ErrEmptyDataset.
func (c *Client) FetchTemperature(ctx context.Context, ts weather.Timestamp) ([]weather.Reading, error) {
	var payload []struct {
		Code    stationCode `json:"code"`
		Lat     float64     `json:"lat"`
		Lon     float64     `json:"lon"`
		Temp    *float64    `json:"temp"`
		Station string      `json:"station"`
	}

	q := url.Values{}
	q.Set("timestamp", string(ts))
	if err := c.getJSON(ctx, EndpointTemperature, "/api/temperature", q, &payload); err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(payload))
	for _, p := range payload {
		if p.Temp == nil {
			continue
		}
		readings = append(readings, weather.Reading{
			Code:        string(p.Code),
			Latitude:    p.Lat,
			Longitude:   p.Lon,
			Temperature: *p.Temp,
			StationName: p.Station,
		})
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("temperature %s: %w", ts, weather.ErrEmptyDataset)
	}
	return readings, nil
}

// FetchIsobars returns the contour FeatureCollection for ts. An empty object
// or a collection without features is weather.ErrEmptyDataset.
func (c *Client) FetchIsobars(ctx context.Context, ts weather.Timestamp) (weather.Isobars, error) {
	q := url.Values{}
	q.Set("timestamp", string(ts))

	body, err := c.get(ctx, EndpointIsobars, "/api/geojson", q)
	if err != nil {
		return weather.Isobars{}, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return weather.Isobars{}, fmt.Errorf("isobars %s: %w", ts, weather.ErrEmptyDataset)
	}

	fc, err := geojson.UnmarshalFeatureCollection(trimmed)
	if err != nil {
		return weather.Isobars{}, fmt.Errorf("%w: %w: isobars %s: %v", weather.ErrNetwork, errMalformed, ts, err)
	}
	iso := weather.Isobars{Collection: fc}
	if iso.Empty() {
		return weather.Isobars{}, fmt.Errorf("isobars %s: %w", ts, weather.ErrEmptyDataset)
	}
	return iso, nil
}

// FetchStationDetail returns the station plot and observed values.
func (c *Client) FetchStationDetail(ctx context.Context, code string, ts weather.Timestamp) (weather.StationDetail, error) {
	var payload struct {
		SVG            string `json:"svg"`
		AdditionalData struct {
			PlaceName        string   `json:"place_name"`
			AirTemp          *float64 `json:"air_temp"`
			DewPoint         *float64 `json:"dew_point"`
			Pressure         *float64 `json:"pressure"`
			WindSpeedKnots   *float64 `json:"wind_speed_knots"`
			WindDir          *float64 `json:"wind_dir"`
			CloudCoverValue  *int     `json:"cloud_cover_value"`
			WeatherCode      *int     `json:"weather_code"`
			PressureTendency *int     `json:"pressure_tendency"`
			PressureChange   *float64 `json:"pressure_change"`
		} `json:"additional_data"`
	}

	q := url.Values{}
	q.Set("code", code)
	q.Set("timestamp", string(ts))
	if err := c.getJSON(ctx, EndpointStation, "/generate_svg", q, &payload); err != nil {
		return weather.StationDetail{}, err
	}

	ad := payload.AdditionalData
	return weather.StationDetail{
		Code:             code,
		Timestamp:        ts,
		SVG:              payload.SVG,
		PlaceName:        ad.PlaceName,
		AirTemp:          ad.AirTemp,
		DewPoint:         ad.DewPoint,
		Pressure:         ad.Pressure,
		WindSpeedKnots:   ad.WindSpeedKnots,
		WindDirection:    ad.WindDir,
		CloudCover:       ad.CloudCoverValue,
		WeatherCode:      ad.WeatherCode,
		PressureTendency: ad.PressureTendency,
		PressureChange:   ad.PressureChange,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, v any) error {
	body, err := c.get(ctx, endpoint, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w: %s: %v", weather.ErrNetwork, errMalformed, endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	start := time.Now()

	buildRequest := func() (*http.Request, error) {
		u := c.baseURL + path
		if len(q) > 0 {
			u = fmt.Sprintf("%s?%s", u, q.Encode())
		}
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.breaker(endpoint), buildRequest)
	if err != nil {
		c.observe(endpoint, outcome(err), start)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "error", start)
		return nil, fmt.Errorf("%w: read %s: %v", weather.ErrNetwork, endpoint, err)
	}
	c.observe(endpoint, "ok", start)
	return body, nil
}

// breaker returns the circuit breaker guarding endpoint.
func (c *Client) breaker(endpoint string) *gobreaker.CircuitBreaker {
	return c.circuits[endpoint]
}

func (c *Client) observe(endpoint, result string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, result, time.Since(start))
	}
}

func outcome(err error) string {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return strconv.Itoa(se.Code)
	case errors.Is(err, errCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
