package mapview

// Zoom limits of the map.
const (
	MinZoom = 4
	MaxZoom = 12
)

// LatLng is a geographic position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefaultCenter is the initial map centre.
var DefaultCenter = LatLng{Lat: 30.3753, Lon: 69.3451}

// ZoomForWidth picks the initial zoom for a viewport width in CSS pixels.
func ZoomForWidth(width int) int {
	switch {
	case width < 768:
		return 4
	case width < 1024:
		return 5
	default:
		return 6
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
