package redact

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Outline is the stroke color used by Preview.
var Outline = color.RGBA{R: 0xe5, G: 0x1c, B: 0x23, A: 0xff}

// Preview renders a review copy of img scaled so its longer side is at
// most maxSide pixels (0 keeps the size), with every rectangle outlined
// instead of filled. It is for showing detections to a user and must not be
// used as redacted output.
func Preview(img image.Image, rects []image.Rectangle, maxSide int) *image.RGBA {
	b := img.Bounds()
	scale := 1.0
	if longest := max(b.Dx(), b.Dy()); maxSide > 0 && longest > maxSide {
		scale = float64(maxSide) / float64(longest)
	}

	dw := max(1, int(math.Round(float64(b.Dx())*scale)))
	dh := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}

	thickness := max(1, int(math.Round(2*scale)))
	for _, r := range rects {
		sr := image.Rect(
			int(math.Floor(float64(r.Min.X)*scale)),
			int(math.Floor(float64(r.Min.Y)*scale)),
			int(math.Ceil(float64(r.Max.X)*scale)),
			int(math.Ceil(float64(r.Max.Y)*scale)),
		).Intersect(dst.Bounds())
		strokeRect(dst, sr, thickness)
	}
	return dst
}

func strokeRect(dst *image.RGBA, r image.Rectangle, t int) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(Outline)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
