package weather

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024091307")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Date() != "2024-09-13" || ts.Hour() != "07" {
		t.Fatalf("unexpected parts: %s %s", ts.Date(), ts.Hour())
	}
	if ts.StartOfDay() != "2024091300" {
		t.Fatalf("expected 2024091300, got %s", ts.StartOfDay())
	}

	for _, bad := range []string{"", "20240913", "2024091325", "2024-09-13", "abcdefghij", "20241301001"} {
		if _, err := ParseTimestamp(bad); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("ParseTimestamp(%q) err = %v; want ErrInvalidTimestamp", bad, err)
		}
	}
}

func TestIntervalStart(t *testing.T) {
	now := time.Date(2024, 9, 13, 17, 42, 0, 0, time.UTC)
	if got := IntervalStart(now, 3); got != "2024091315" {
		t.Fatalf("expected 2024091315, got %s", got)
	}
	if got := IntervalStart(now, 0); got != "2024091317" {
		t.Fatalf("expected 2024091317, got %s", got)
	}

	local := time.Date(2024, 9, 14, 1, 0, 0, 0, time.FixedZone("PKT", 5*3600))
	if got := IntervalStart(local, 3); got != "2024091318" {
		t.Fatalf("expected UTC slot 2024091318, got %s", got)
	}
}

func TestBuildCatalog(t *testing.T) {
	files := []string{
		"2024091306.geojson",
		"2024091300.geojson",
		"2024091221.geojson",
		"2024091303.geojson",
		"2024091300.geojson",
		"README.md",
		"notatimestamp.geojson",
	}

	c := BuildCatalog(files)

	if want := []string{"2024-09-13", "2024-09-12"}; !reflect.DeepEqual(c.Dates, want) {
		t.Fatalf("dates = %v; want %v", c.Dates, want)
	}
	if want := []string{"00", "03", "06"}; !reflect.DeepEqual(c.Hours["2024-09-13"], want) {
		t.Fatalf("hours = %v; want %v", c.Hours["2024-09-13"], want)
	}
	if !c.Has("2024091221") || c.Has("2024091209") {
		t.Fatalf("Has() disagrees with listing: %+v", c)
	}
	latest, ok := c.Latest()
	if !ok || latest != "2024091306" {
		t.Fatalf("Latest() = %s, %v; want 2024091306", latest, ok)
	}
}

func TestCatalogLatestEmpty(t *testing.T) {
	if _, ok := BuildCatalog(nil).Latest(); ok {
		t.Fatal("expected no latest timestamp for empty catalog")
	}
}
