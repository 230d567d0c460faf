package weather

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const timestampLayout = "2006010215"

// Timestamp identifies a dataset as YYYYMMDDHH (UTC).
type Timestamp string

// ParseTimestamp validates s as YYYYMMDDHH.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(timestampLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	if _, err := time.Parse(timestampLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
	}
	return Timestamp(s), nil
}

// TimestampFromTime formats t in UTC.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(timestampLayout))
}

// IntervalStart returns the timestamp of the interval-hour slot containing now,
// e.g. 3-hourly synoptic slots 00, 03, ... 21.
func IntervalStart(now time.Time, intervalHours int) Timestamp {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	now = now.UTC()
	h := (now.Hour() / intervalHours) * intervalHours
	return TimestampFromTime(time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, time.UTC))
}

// StartOfDay returns the same day at hour 00.
func (t Timestamp) StartOfDay() Timestamp {
	if len(t) < 8 {
		return t
	}
	return t[:8] + "00"
}

// Date returns YYYY-MM-DD.
func (t Timestamp) Date() string {
	if len(t) < 8 {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", t[0:4], t[4:6], t[6:8])
}

// Hour returns HH.
func (t Timestamp) Hour() string {
	if len(t) < 10 {
		return ""
	}
	return string(t[8:10])
}

// Time returns the timestamp as a UTC time.
func (t Timestamp) Time() (time.Time, error) {
	return time.Parse(timestampLayout, string(t))
}

// Catalog lists the timestamps available upstream, grouped for the date and
// hour selectors.
type Catalog struct {
	// Dates holds YYYY-MM-DD values, newest first.
	Dates []string `json:"dates"`
	// Hours maps each date to its HH values in ascending order.
	Hours map[string][]string `json:"hours"`
}

// BuildCatalog groups dataset filenames such as "2024091300.geojson".
// Names that do not start with a valid timestamp are skipped.
func BuildCatalog(files []string) Catalog {
	hours := make(map[string][]string)
	for _, f := range files {
		name := strings.TrimSuffix(f, ".geojson")
		ts, err := ParseTimestamp(name)
		if err != nil {
			continue
		}
		d := ts.Date()
		if !contains(hours[d], ts.Hour()) {
			hours[d] = append(hours[d], ts.Hour())
		}
	}

	dates := make([]string, 0, len(hours))
	for d, hs := range hours {
		sort.Strings(hs)
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return Catalog{Dates: dates, Hours: hours}
}

// Has reports whether ts is listed.
func (c Catalog) Has(ts Timestamp) bool {
	return contains(c.Hours[ts.Date()], ts.Hour())
}

// Latest returns the newest listed timestamp.
func (c Catalog) Latest() (Timestamp, bool) {
	if len(c.Dates) == 0 {
		return "", false
	}
	d := c.Dates[0]
	hs := c.Hours[d]
	if len(hs) == 0 {
		return "", false
	}
	return Timestamp(strings.ReplaceAll(d, "-", "") + hs[len(hs)-1]), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
