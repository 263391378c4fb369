package redact

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ivlev/redactshot/internal/geometry"
	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/selection"
)

// gradient builds a test image where every pixel differs from black.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x*7 + 1), G: uint8(y*5 + 1), B: uint8(x + y + 1), A: 255})
		}
	}
	return img
}

func isBlack(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r == 0 && g == 0 && b == 0 && a == 0xffff
}

func TestRedactFillsOpaqueBlack(t *testing.T) {
	src := gradient(40, 30)
	rect := image.Rect(5, 5, 15, 12)

	out := Redact(src, []image.Rectangle{rect})

	require.Equal(t, src.Bounds(), out.Bounds())
	_, sameType := out.(*image.NRGBA)
	assert.True(t, sameType, "pixel format should be preserved")

	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			p := image.Pt(x, y)
			if p.In(rect) {
				assert.True(t, isBlack(out.At(x, y)), "pixel %v not masked", p)
			} else {
				assert.Equal(t, src.At(x, y), out.At(x, y), "pixel %v changed", p)
			}
		}
	}
}

func TestRedactDoesNotModifySource(t *testing.T) {
	src := gradient(20, 20)
	before := append([]byte(nil), src.Pix...)

	Redact(src, []image.Rectangle{image.Rect(0, 0, 20, 20)})

	assert.Equal(t, before, src.Pix)
}

func TestRedactIsIdempotent(t *testing.T) {
	src := gradient(50, 50)
	rects := []image.Rectangle{image.Rect(1, 1, 10, 10), image.Rect(8, 8, 30, 20)}

	a := Redact(src, rects).(*image.NRGBA)
	b := Redact(src, rects).(*image.NRGBA)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestRedactShrinkingSetUnredacts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := gradient(32, 24)
		n := rapid.IntRange(1, 5).Draw(t, "n")
		var r1 []image.Rectangle
		for i := 0; i < n; i++ {
			x := rapid.IntRange(0, 31).Draw(t, "x")
			y := rapid.IntRange(0, 23).Draw(t, "y")
			w := rapid.IntRange(1, 32).Draw(t, "w")
			h := rapid.IntRange(1, 24).Draw(t, "h")
			r1 = append(r1, image.Rect(x, y, x+w, y+h))
		}
		keep := rapid.IntRange(0, n-1).Draw(t, "keep")
		r2 := r1[:keep]

		_ = Redact(src, r1)
		out := Redact(src, r2)

		for y := 0; y < 24; y++ {
			for x := 0; x < 32; x++ {
				covered := false
				for _, r := range r2 {
					if image.Pt(x, y).In(r) {
						covered = true
						break
					}
				}
				if covered {
					if !isBlack(out.At(x, y)) {
						t.Fatalf("pixel (%d,%d) should be masked", x, y)
					}
				} else if out.At(x, y) != src.At(x, y) {
					t.Fatalf("pixel (%d,%d) outside the kept set differs from the original", x, y)
				}
			}
		}
	})
}

func TestRedactPixelFormats(t *testing.T) {
	b := image.Rect(0, 0, 8, 8)
	blackPalette := color.Palette{color.White, color.Black}
	noBlackPalette := color.Palette{color.White, color.RGBA{R: 200, A: 255}}

	tests := []struct {
		name     string
		src      image.Image
		wantType string
	}{
		{"rgba", image.NewRGBA(b), "*image.RGBA"},
		{"rgba64", image.NewRGBA64(b), "*image.RGBA64"},
		{"nrgba64", image.NewNRGBA64(b), "*image.NRGBA64"},
		{"gray", image.NewGray(b), "*image.Gray"},
		{"gray16", image.NewGray16(b), "*image.Gray16"},
		{"cmyk", image.NewCMYK(b), "*image.CMYK"},
		{"paletted with black", image.NewPaletted(b, blackPalette), "*image.Paletted"},
		{"paletted without black", image.NewPaletted(b, noBlackPalette), "*image.RGBA"},
		{"ycbcr", image.NewYCbCr(b, image.YCbCrSubsampleRatio420), "*image.RGBA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Redact(tt.src, []image.Rectangle{image.Rect(2, 2, 6, 6)})

			assert.Equal(t, tt.wantType, typeName(out))
			assert.Equal(t, b, out.Bounds())
			assert.True(t, isBlack(out.At(3, 3)), "masked pixel is %v", out.At(3, 3))
		})
	}
}

func TestRedactSubImageOffsets(t *testing.T) {
	full := gradient(40, 40)
	sub := full.SubImage(image.Rect(10, 10, 30, 30)).(*image.NRGBA)

	out := Redact(sub, []image.Rectangle{image.Rect(0, 0, 5, 5)})

	assert.Equal(t, sub.Bounds(), out.Bounds())
	assert.True(t, isBlack(out.At(10, 10)))
	assert.True(t, isBlack(out.At(14, 14)))
	assert.Equal(t, sub.At(15, 15), out.At(15, 15))
}

func TestRedactClipsOutOfBoundsRects(t *testing.T) {
	src := gradient(10, 10)
	out := Redact(src, []image.Rectangle{image.Rect(-5, -5, 3, 3), image.Rect(50, 50, 60, 60)})

	assert.True(t, isBlack(out.At(0, 0)))
	assert.Equal(t, src.At(5, 5), out.At(5, 5))
}

func TestToggleIsolation(t *testing.T) {
	src := gradient(100, 100)
	email := model.NewItem(model.Email, "a@b.com", geometry.NormRect{X: 0, Y: 0.5, W: 0.5, H: 0.5})
	phone := model.NewItem(model.Phone, "555-123-4567", geometry.NormRect{X: 0.5, Y: 0, W: 0.5, H: 0.5})

	store := selection.NewStore(model.AllDetectors())
	store.ReplaceAll([]model.SensitiveItem{email, phone})
	store.SetConfig(model.AllDetectors().With(model.Phone, false))

	out := Redact(src, store.ActiveRects(100, 100))

	assert.True(t, isBlack(out.At(10, 10)), "email region stays redacted")
	assert.Equal(t, src.At(80, 80), out.At(80, 80), "phone region is unredacted")
}

func TestPreview(t *testing.T) {
	src := gradient(400, 200)
	out := Preview(src, []image.Rectangle{image.Rect(100, 50, 300, 150)}, 200)

	assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
	assert.Equal(t, Outline, out.RGBAAt(50, 25))
	assert.NotEqual(t, Outline, out.RGBAAt(100, 50), "preview must not fill the box")

	same := Preview(src, nil, 0)
	assert.Equal(t, src.Bounds(), same.Bounds())
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *image.RGBA:
		return "*image.RGBA"
	case *image.NRGBA:
		return "*image.NRGBA"
	case *image.RGBA64:
		return "*image.RGBA64"
	case *image.NRGBA64:
		return "*image.NRGBA64"
	case *image.Gray:
		return "*image.Gray"
	case *image.Gray16:
		return "*image.Gray16"
	case *image.CMYK:
		return "*image.CMYK"
	case *image.Paletted:
		return "*image.Paletted"
	default:
		return "other"
	}
}
