package mapview

import (
	"math"
)

// DefaultRadiusPx is the clustering cell size in screen pixels.
const DefaultRadiusPx = 80

const tileSize = 256

// project converts a position to Web-Mercator pixel coordinates at zoom.
func project(p LatLng, zoom int) (x, y float64) {
	scale := tileSize * math.Exp2(float64(zoom))
	siny := math.Sin(p.Lat * math.Pi / 180)
	siny = math.Min(math.Max(siny, -0.9999), 0.9999)

	x = (p.Lon + 180) / 360 * scale
	y = (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)) * scale
	return x, y
}

type cell struct {
	col, row int64
}

// group partitions points into screen-space grid cells of radius pixels at
// zoom. Groups keep the order in which their first point appears, and
// indices inside a group are ascending.
func group(points []LatLng, zoom int, radius float64) [][]int {
	if radius <= 0 {
		radius = DefaultRadiusPx
	}

	index := make(map[cell]int)
	var groups [][]int
	for i, p := range points {
		x, y := project(p, zoom)
		c := cell{col: int64(math.Floor(x / radius)), row: int64(math.Floor(y / radius))}
		gi, ok := index[c]
		if !ok {
			gi = len(groups)
			index[c] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}

func centroid(points []LatLng, idx []int) LatLng {
	var lat, lon float64
	for _, i := range idx {
		lat += points[i].Lat
		lon += points[i].Lon
	}
	n := float64(len(idx))
	return LatLng{Lat: lat / n, Lon: lon / n}
}
