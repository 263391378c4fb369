//go:build !ocr

package ocr

import (
	"context"
	"image"
)

// Tesseract is a stub used when the "ocr" build tag is not set.
type Tesseract struct{}

func NewTesseract(lang string) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	return nil, ErrOCRNotEnabled
}

func (t *Tesseract) Close() error {
	return nil
}
