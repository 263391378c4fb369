// Package export writes redacted images and detection reports to disk.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/ivlev/redactshot/internal/model"
)

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %w", model.ErrEncodeFailed, err)
	}
	return nil
}

// SavePNG encodes img and writes it to path. The file is written to a
// temporary name in the same directory and renamed into place, so a failed
// save never leaves a half-written image behind.
func SavePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	tmp, err := os.CreateTemp(dir, ".redactshot-*.png")
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	return nil
}
