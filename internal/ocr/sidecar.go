package ocr

import (
	"context"
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v3"
)

// SidecarFile is the on-disk format for lines recognized by an external
// engine. Boxes are normalized with a bottom-left origin.
type SidecarFile struct {
	Version string `yaml:"version"`
	Lines   []Line `yaml:"lines"`
}

// Sidecar serves recognition results from a YAML file, re-read on every call
// so an external engine can refresh it between runs.
type Sidecar struct {
	path string
}

func NewSidecar(path string) *Sidecar {
	return &Sidecar{path: path}
}

func (s *Sidecar) Recognize(ctx context.Context, _ image.Image) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := ReadSidecar(s.path)
	if err != nil {
		return nil, err
	}
	return f.Lines, nil
}

// ReadSidecar reads a lines file.
func ReadSidecar(path string) (*SidecarFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f SidecarFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// WriteSidecar writes a lines file.
func WriteSidecar(f *SidecarFile, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
