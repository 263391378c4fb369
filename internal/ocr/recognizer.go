// Package ocr defines the text recognition contract the detection pipeline
// depends on, plus the engines that satisfy it.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ivlev/redactshot/internal/geometry"
)

// ErrOCRNotEnabled is returned when the Tesseract engine was not compiled
// in. Rebuild with -tags ocr, or use the sidecar recognizer.
var ErrOCRNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags ocr")

// Line is one recognized text line with its best candidate string.
type Line struct {
	Text string            `yaml:"text"`
	Box  geometry.NormRect `yaml:"box"`
}

// Recognizer finds text lines in an image. Implementations block until
// recognition finishes or ctx is done; callers that must not block run
// Recognize on their own goroutine.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Line, error)
}

// Options configures the engines built by NewRecognizer.
type Options struct {
	Language    string // tesseract language, e.g. "eng" or "eng+deu"
	SidecarPath string // YAML file with pre-recognized lines
}

// NewRecognizer creates a recognizer for the given variant.
func NewRecognizer(variant string, opts Options) (Recognizer, error) {
	switch variant {
	case "tesseract", "":
		t, err := NewTesseract(opts.Language)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "sidecar":
		if opts.SidecarPath == "" {
			return nil, fmt.Errorf("sidecar recognizer needs a lines file")
		}
		return NewSidecar(opts.SidecarPath), nil
	default:
		return nil, fmt.Errorf("unknown recognizer variant: %s", variant)
	}
}

// Static returns the same lines for every image.
type Static struct {
	Lines []Line
	Err   error
}

func (s *Static) Recognize(ctx context.Context, _ image.Image) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Line, len(s.Lines))
	copy(out, s.Lines)
	return out, nil
}
