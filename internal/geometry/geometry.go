// Package geometry translates recognizer coordinates into image pixel space.
package geometry

import (
	"image"
	"math"
)

// NormRect is a rectangle expressed as fractions of the image size.
// The origin is the bottom-left corner and Y grows upward, which is how
// text recognizers report line boxes.
type NormRect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Clamp returns r restricted to the unit square with non-negative size.
// NaN components collapse to zero.
func (r NormRect) Clamp() NormRect {
	x0 := clamp01(r.X)
	y0 := clamp01(r.Y)
	x1 := clamp01(r.X + math.Max(r.W, 0))
	y1 := clamp01(r.Y + math.Max(r.H, 0))
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return NormRect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Valid reports whether every component lies in [0,1] and the size is
// non-negative.
func (r NormRect) Valid() bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 }
	return in(r.X) && in(r.Y) && in(r.W) && in(r.H) &&
		r.X+r.W <= 1+1e-9 && r.Y+r.H <= 1+1e-9
}

// Empty reports whether r covers no area.
func (r NormRect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ToPixelRect converts a normalized bottom-left box into the top-left pixel
// rectangle covering the same region of a width x height image.
//
// The origin is floored and the far edge ceiled, so the result always
// covers the exact region and two boxes sharing an edge never leave an
// uncovered pixel column or row between them. The result is clipped to the
// image bounds, and a non-empty box never maps to fewer than one pixel on
// either axis.
func ToPixelRect(box NormRect, width, height int) image.Rectangle {
	if width <= 0 || height <= 0 || box.Empty() {
		return image.Rectangle{}
	}
	w, h := float64(width), float64(height)

	x0, x1 := pixelSpan(math.Floor(box.X*w), math.Ceil((box.X+box.W)*w), width)
	y0, y1 := pixelSpan(math.Floor((1-box.Y-box.H)*h), math.Ceil((1-box.Y)*h), height)
	return image.Rect(x0, y0, x1, y1)
}

// pixelSpan clips [lo, hi) to [0, n) and widens it to one pixel when
// rounding collapsed it, staying inside the image.
func pixelSpan(lo, hi float64, n int) (int, int) {
	a := int(math.Max(lo, 0))
	b := int(math.Min(hi, float64(n)))
	if a > n-1 {
		a = n - 1
	}
	if b <= a {
		b = a + 1
	}
	return a, b
}

// FromPixelRect is the inverse mapping: a top-left pixel rectangle inside a
// width x height image becomes a normalized bottom-left box.
func FromPixelRect(r image.Rectangle, width, height int) NormRect {
	if width <= 0 || height <= 0 {
		return NormRect{}
	}
	w, h := float64(width), float64(height)
	return NormRect{
		X: float64(r.Min.X) / w,
		Y: 1 - float64(r.Max.Y)/h,
		W: float64(r.Dx()) / w,
		H: float64(r.Dy()) / h,
	}.Clamp()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
