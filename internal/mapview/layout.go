// Package mapview turns a loaded weather view into what the map draws:
// coloured station markers, averaged cluster icons, pressure labels and the
// temperature legend.
package mapview

import (
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/i474232898/weather-map/internal/colorramp"
	"github.com/i474232898/weather-map/internal/weather"
)

// LegendSteps is the number of legend entries.
const LegendSteps = 7

// NeutralColor fills cluster icons that have no usable average.
var NeutralColor = colorramp.Color{R: 160, G: 160, B: 160}

// Marker is a single station on the map.
type Marker struct {
	Code        string          `json:"code"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	Temperature float64         `json:"temp"`
	Label       string          `json:"label"`
	Tooltip     string          `json:"tooltip"`
	Color       colorramp.Color `json:"color"`
}

// Cluster is a group of nearby markers drawn as one icon.
type Cluster struct {
	Lat     float64         `json:"lat"`
	Lon     float64         `json:"lon"`
	Count   int             `json:"count"`
	Valid   int             `json:"valid"`
	Label   string          `json:"label,omitempty"`
	Color   colorramp.Color `json:"color"`
	Members []string        `json:"members"`
}

// LegendStop is one entry of the colour legend.
type LegendStop struct {
	Value float64         `json:"value"`
	Color colorramp.Color `json:"color"`
}

// Layout is the full drawable state for one zoom level.
type Layout struct {
	Requested       weather.Timestamp          `json:"requested"`
	Timestamp       weather.Timestamp          `json:"timestamp"`
	IsobarTimestamp weather.Timestamp          `json:"isobarTimestamp,omitempty"`
	Generation      uint64                     `json:"generation"`
	Zoom            int                        `json:"zoom"`
	Range           weather.TemperatureRange   `json:"range"`
	Markers         []Marker                   `json:"markers"`
	Clusters        []Cluster                  `json:"clusters"`
	PressureLabels  []weather.PressureLabel    `json:"pressureLabels"`
	Isobars         *geojson.FeatureCollection `json:"isobars,omitempty"`
	Legend          []LegendStop               `json:"legend"`
	Warnings        []string                   `json:"warnings,omitempty"`
}

// Renderer builds layouts with a fixed palette and clustering radius.
type Renderer struct {
	Palette  colorramp.Palette
	RadiusPx float64
}

// NewRenderer returns a renderer using the default palette when p has no anchors.
func NewRenderer(p colorramp.Palette, radiusPx float64) Renderer {
	if p.Len() < 2 {
		p = colorramp.DefaultPalette
	}
	if radiusPx <= 0 {
		radiusPx = DefaultRadiusPx
	}
	return Renderer{Palette: p, RadiusPx: radiusPx}
}

// FormatLabel renders a marker label such as "31.2°".
func FormatLabel(temp float64) string {
	return strconv.FormatFloat(temp, 'f', -1, 64) + "°"
}

// Markers colours every reading against rng.
func (r Renderer) Markers(readings []weather.Reading, rng weather.TemperatureRange) []Marker {
	out := make([]Marker, 0, len(readings))
	for _, rd := range readings {
		out = append(out, Marker{
			Code:        rd.Code,
			Lat:         rd.Latitude,
			Lon:         rd.Longitude,
			Temperature: rd.Temperature,
			Label:       FormatLabel(rd.Temperature),
			Tooltip:     rd.StationName,
			Color:       rng.Color(r.Palette, rd.Temperature),
		})
	}
	return out
}

// ClusterIcon summarizes members by their rendered labels and colours the
// local average against the dataset-wide range rng.
func (r Renderer) ClusterIcon(members []Marker, rng weather.TemperatureRange) Cluster {
	labels := make([]weather.Member, len(members))
	points := make([]LatLng, len(members))
	codes := make([]string, len(members))
	idx := make([]int, len(members))
	for i, m := range members {
		labels[i] = weather.Label(m.Label)
		points[i] = LatLng{Lat: m.Lat, Lon: m.Lon}
		codes[i] = m.Code
		idx[i] = i
	}

	c := Cluster{Count: len(members), Members: codes, Color: NeutralColor}
	if len(members) > 0 {
		center := centroid(points, idx)
		c.Lat, c.Lon = center.Lat, center.Lon
	}

	summary := weather.SummarizeCluster(labels)
	c.Valid = summary.Count
	if summary.Valid() {
		c.Label = summary.Display() + "°"
		c.Color = rng.Color(r.Palette, summary.Mean)
	}
	return c
}

// Legend returns LegendSteps evenly spaced colour stops over rng.
func (r Renderer) Legend(rng weather.TemperatureRange) []LegendStop {
	steps := rng.Steps(LegendSteps)
	out := make([]LegendStop, len(steps))
	for i, v := range steps {
		out[i] = LegendStop{Value: v, Color: rng.Color(r.Palette, v)}
	}
	return out
}

// Layout clusters v's markers at zoom. Cells holding a single marker stay
// plain markers.
func (r Renderer) Layout(v *weather.View, zoom int) Layout {
	zoom = ClampZoom(zoom)

	l := Layout{
		Requested:       v.Requested,
		Timestamp:       v.Timestamp,
		IsobarTimestamp: v.IsobarTimestamp,
		Generation:      v.Generation,
		Zoom:            zoom,
		Range:           v.Range,
		Markers:         []Marker{},
		Clusters:        []Cluster{},
		PressureLabels:  v.Isobars.Labels(),
		Isobars:         v.Isobars.Collection,
	}
	for _, p := range v.Problems {
		l.Warnings = append(l.Warnings, p.Error())
	}

	if len(v.Readings) == 0 {
		return l
	}
	l.Legend = r.Legend(v.Range)

	markers := r.Markers(v.Readings, v.Range)
	points := make([]LatLng, len(markers))
	for i, m := range markers {
		points[i] = LatLng{Lat: m.Lat, Lon: m.Lon}
	}

	for _, g := range group(points, zoom, r.RadiusPx) {
		if len(g) == 1 {
			l.Markers = append(l.Markers, markers[g[0]])
			continue
		}
		members := make([]Marker, len(g))
		for i, mi := range g {
			members[i] = markers[mi]
		}
		l.Clusters = append(l.Clusters, r.ClusterIcon(members, v.Range))
	}
	return l
}
