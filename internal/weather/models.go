package weather

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/geojson"
)

// Reading is one station's temperature observation.
type Reading struct {
	Code        string  `json:"code"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Temperature float64 `json:"temp"`
	StationName string  `json:"station"`
}

// TemperatureValue implements Member.
func (r Reading) TemperatureValue() (float64, error) {
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return 0, fmt.Errorf("%w: station %s: %v", ErrUnparseableValue, r.Code, r.Temperature)
	}
	return r.Temperature, nil
}

// Isobars is the contour layer for one timestamp. Features are LineStrings
// whose properties may carry "label" and "label_coords" ([lon, lat]).
type Isobars struct {
	Collection *geojson.FeatureCollection
}

// Empty reports whether the layer has nothing to draw.
func (i Isobars) Empty() bool {
	return i.Collection == nil || len(i.Collection.Features) == 0
}

// PressureLabel annotates a contour with its pressure value.
type PressureLabel struct {
	Text      string  `json:"text"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Labels extracts pressure annotations from features that carry both a
// label and label coordinates.
func (i Isobars) Labels() []PressureLabel {
	if i.Empty() {
		return nil
	}

	var labels []PressureLabel
	for _, f := range i.Collection.Features {
		if f == nil || f.Properties == nil {
			continue
		}
		raw, ok := f.Properties["label"]
		if !ok || raw == nil {
			continue
		}
		coords, ok := f.Properties["label_coords"].([]interface{})
		if !ok || len(coords) < 2 {
			continue
		}
		lon, okLon := coords[0].(float64)
		lat, okLat := coords[1].(float64)
		if !okLon || !okLat {
			continue
		}
		labels = append(labels, PressureLabel{
			Text:      formatLabel(raw),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return labels
}

func formatLabel(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// StationDetail is the per-station popup payload. Pointer fields are absent
// when the station did not report them.
type StationDetail struct {
	Code      string    `json:"code"`
	Timestamp Timestamp `json:"timestamp"`
	SVG       string    `json:"svg"`

	PlaceName        string   `json:"place_name"`
	AirTemp          *float64 `json:"air_temp,omitempty"`
	DewPoint         *float64 `json:"dew_point,omitempty"`
	Pressure         *float64 `json:"pressure,omitempty"`
	WindSpeedKnots   *float64 `json:"wind_speed_knots,omitempty"`
	WindDirection    *float64 `json:"wind_dir,omitempty"`
	CloudCover       *int     `json:"cloud_cover_value,omitempty"`
	WeatherCode      *int     `json:"weather_code,omitempty"`
	PressureTendency *int     `json:"pressure_tendency,omitempty"`
	PressureChange   *float64 `json:"pressure_change,omitempty"`
}

// Dataset is what a session caches per timestamp. Either layer may be nil
// when it has not been loaded for that slot.
type Dataset struct {
	Temperature []Reading
	Isobars     *Isobars
}
