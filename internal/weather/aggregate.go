package weather

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/i474232898/weather-map/internal/colorramp"
)

// TemperatureRange is the [Min, Max] span of the displayed dataset.
type TemperatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ComputeRange returns the min and max temperature over readings. Readings
// with non-finite temperatures are ignored; if none remain the result is
// ErrEmptyDataset.
func ComputeRange(readings []Reading) (TemperatureRange, error) {
	var (
		r     TemperatureRange
		found bool
	)
	for _, rd := range readings {
		v, err := rd.TemperatureValue()
		if err != nil {
			continue
		}
		if !found {
			r = TemperatureRange{Min: v, Max: v}
			found = true
			continue
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	if !found {
		return TemperatureRange{}, fmt.Errorf("compute range over %d readings: %w", len(readings), ErrEmptyDataset)
	}
	return r, nil
}

// Color maps v onto p using this range.
func (r TemperatureRange) Color(p colorramp.Palette, v float64) colorramp.Color {
	return p.ColorFor(v, r.Min, r.Max)
}

// Steps returns n evenly spaced values from Min to Max inclusive.
func (r TemperatureRange) Steps(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{r.Min}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*(r.Max-r.Min)/float64(n-1)
	}
	return out
}

// Member is anything a cluster can be summarized from.
type Member interface {
	TemperatureValue() (float64, error)
}

// Label is the rendered text of a marker, e.g. "23.5°" or "-4&deg;".
type Label string

// TemperatureValue parses the leading number of the label.
func (l Label) TemperatureValue() (float64, error) {
	return ParseTemperature(string(l))
}

// ParseTemperature reads a finite number, ignoring a trailing degree sign,
// "&deg;" entity or "C" unit.
func ParseTemperature(s string) (float64, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, "C")
	t = strings.TrimSuffix(t, "&deg;")
	t = strings.TrimSuffix(t, "°")
	t = strings.TrimSpace(t)

	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableValue, s)
	}
	return v, nil
}

// ClusterSummary is the representative value of a group of markers.
type ClusterSummary struct {
	// Mean is the unrounded arithmetic mean of the valid members, NaN when
	// Count is zero.
	Mean  float64 `json:"-"`
	Count int     `json:"count"`
}

// SummarizeCluster averages the members that yield a finite temperature.
// Members that cannot be parsed are skipped. With no valid member the
// summary has Count 0 and Mean NaN.
func SummarizeCluster(members []Member) ClusterSummary {
	var (
		sum   float64
		count int
	)
	for _, m := range members {
		if m == nil {
			continue
		}
		v, err := m.TemperatureValue()
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return ClusterSummary{Mean: math.NaN()}
	}
	return ClusterSummary{Mean: sum / float64(count), Count: count}
}

// Valid reports whether the summary has a usable mean.
func (s ClusterSummary) Valid() bool {
	return s.Count > 0 && !math.IsNaN(s.Mean)
}

// Rounded returns Mean rounded to two decimals.
func (s ClusterSummary) Rounded() float64 {
	if !s.Valid() {
		return math.NaN()
	}
	return math.Round(s.Mean*100) / 100
}

// Display renders Mean with two decimals, or "" when there is nothing to show.
func (s ClusterSummary) Display() string {
	if !s.Valid() {
		return ""
	}
	return strconv.FormatFloat(s.Mean, 'f', 2, 64)
}
