// Package colorramp maps scalar values onto an ordered palette of anchor colours
// by linear blending between the two neighbouring anchors.
package colorramp

import (
	"errors"
	"fmt"
	"math"
)

// ErrPaletteTooSmall is returned when fewer than two anchors are supplied.
var ErrPaletteTooSmall = errors.New("palette needs at least two anchors")

// Palette is an immutable, ordered sequence of anchor colours. The zero value
// has no anchors and must not be used; build palettes with NewPalette.
type Palette struct {
	anchors []Color
}

// DefaultPalette is the cold-to-warm temperature ramp used by the viewer.
var DefaultPalette = MustPalette(
	"rgb(149, 137, 211)",
	"rgb(150, 209, 216)",
	"rgb(129, 204, 197)",
	"rgb(103, 180, 186)",
	"rgb(95, 143, 197)",
	"rgb(80, 140, 62)",
	"rgb(121, 146, 28)",
	"rgb(171, 161, 14)",
	"rgb(223, 177, 6)",
	"rgb(236, 95, 21)",
)

// NewPalette copies anchors into a new Palette.
func NewPalette(anchors ...Color) (Palette, error) {
	if len(anchors) < 2 {
		return Palette{}, fmt.Errorf("%w: got %d", ErrPaletteTooSmall, len(anchors))
	}
	cp := make([]Color, len(anchors))
	copy(cp, anchors)
	return Palette{anchors: cp}, nil
}

// ParsePalette parses each entry with ParseColor.
func ParsePalette(colors []string) (Palette, error) {
	anchors := make([]Color, 0, len(colors))
	for _, s := range colors {
		c, err := ParseColor(s)
		if err != nil {
			return Palette{}, err
		}
		anchors = append(anchors, c)
	}
	return NewPalette(anchors...)
}

// MustPalette is ParsePalette for package-level literals.
func MustPalette(colors ...string) Palette {
	p, err := ParsePalette(colors)
	if err != nil {
		panic("MustPalette: " + err.Error())
	}
	return p
}

// Len returns the number of anchors.
func (p Palette) Len() int { return len(p.anchors) }

// Anchors returns a copy of the anchor colours.
func (p Palette) Anchors() []Color {
	cp := make([]Color, len(p.anchors))
	copy(cp, p.anchors)
	return cp
}

// First returns the lowest anchor.
func (p Palette) First() Color { return p.anchors[0] }

// Last returns the highest anchor.
func (p Palette) Last() Color { return p.anchors[len(p.anchors)-1] }

// ColorFor normalizes value against [rangeMin, rangeMax] and returns the
// interpolated colour. A zero-width range maps every value to the first anchor.
// Values outside the range clamp to the end anchors.
func (p Palette) ColorFor(value, rangeMin, rangeMax float64) Color {
	return p.At(Normalize(value, rangeMin, rangeMax))
}

// Normalize maps value into range units. Zero-width ranges and NaN yield 0.
func Normalize(value, rangeMin, rangeMax float64) float64 {
	width := rangeMax - rangeMin
	if width == 0 || math.IsNaN(value) || math.IsNaN(width) {
		return 0
	}
	t := (value - rangeMin) / width
	switch {
	case math.IsNaN(t):
		return 0
	case math.IsInf(t, 1):
		return 1
	case math.IsInf(t, -1):
		return 0
	}
	return t
}

// At returns the colour for an already normalized position t. Positions
// outside [0,1] clamp to the end anchors.
func (p Palette) At(t float64) Color {
	if math.IsNaN(t) {
		t = 0
	}
	n := len(p.anchors)
	step := 1 / float64(n-1)

	lowerIndex := int(math.Floor(clamp(t/step, 0, float64(n-1))))
	upperIndex := min(lowerIndex+1, n-1)

	f := clamp((t-float64(lowerIndex)*step)/step, 0, 1)

	lower, upper := p.anchors[lowerIndex], p.anchors[upperIndex]
	return Color{
		R: blend(lower.R, upper.R, f),
		G: blend(lower.G, upper.G, f),
		B: blend(lower.B, upper.B, f),
	}
}

// blend rounds half up, so a midpoint of 0 and 255 is 128.
func blend(a, b uint8, f float64) uint8 {
	v := math.Floor(float64(a) + f*(float64(b)-float64(a)) + 0.5)
	return uint8(clamp(v, 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
