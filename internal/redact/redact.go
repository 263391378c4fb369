// Package redact paints opaque masks over regions of an image.
package redact

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Fill is the mask color. It must stay fully opaque.
var Fill = color.RGBA{A: 0xff}

// Redact returns a fresh copy of img with every rectangle in rects filled
// with Fill. Rectangles are in pixel coordinates relative to the image's
// top-left corner. img is never modified, so calling Redact again with a
// smaller set of rectangles restores the regions that were dropped, and
// repeated calls with the same set produce identical pixels.
//
// The copy keeps img's bounds and, where the concrete type can hold an
// opaque black, its pixel format. Other formats (YCbCr from JPEG, palettes
// without black) are copied to RGBA.
func Redact(img image.Image, rects []image.Rectangle) draw.Image {
	dst := clone(img)
	b := dst.Bounds()
	fill := image.NewUniform(Fill)
	for _, r := range rects {
		r = r.Add(b.Min).Intersect(b)
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, fill, image.Point{}, draw.Src)
	}
	return dst
}

func clone(src image.Image) draw.Image {
	b := src.Bounds()
	switch s := src.(type) {
	case *image.RGBA:
		d := image.NewRGBA(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 4*b.Dx(), b.Dy())
		return d
	case *image.NRGBA:
		d := image.NewNRGBA(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 4*b.Dx(), b.Dy())
		return d
	case *image.RGBA64:
		d := image.NewRGBA64(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 8*b.Dx(), b.Dy())
		return d
	case *image.NRGBA64:
		d := image.NewNRGBA64(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 8*b.Dx(), b.Dy())
		return d
	case *image.Gray:
		d := image.NewGray(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), b.Dx(), b.Dy())
		return d
	case *image.Gray16:
		d := image.NewGray16(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 2*b.Dx(), b.Dy())
		return d
	case *image.CMYK:
		d := image.NewCMYK(b)
		copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 4*b.Dx(), b.Dy())
		return d
	case *image.Paletted:
		if hasOpaqueBlack(s.Palette) {
			pal := make(color.Palette, len(s.Palette))
			copy(pal, s.Palette)
			d := image.NewPaletted(b, pal)
			copyRows(d.Pix, d.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), b.Dx(), b.Dy())
			return d
		}
	}

	d := image.NewRGBA(b)
	draw.Draw(d, b, src, b.Min, draw.Src)
	return d
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride, srcStart, rowBytes, rows int) {
	for y := 0; y < rows; y++ {
		so := srcStart + y*srcStride
		copy(dst[y*dstStride:y*dstStride+rowBytes], src[so:so+rowBytes])
	}
}

func hasOpaqueBlack(p color.Palette) bool {
	for _, c := range p {
		r, g, b, a := c.RGBA()
		if r == 0 && g == 0 && b == 0 && a == 0xffff {
			return true
		}
	}
	return false
}
