package export

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/redactshot/internal/model"
)

// Report is the YAML form of a detection run. Users may edit the selected
// flags and hand the file back to apply their choices.
type Report struct {
	Version   string                `yaml:"version"`
	Source    string                `yaml:"source"`
	CreatedAt time.Time             `yaml:"created_at"`
	Width     int                   `yaml:"width"`
	Height    int                   `yaml:"height"`
	Detectors model.DetectorConfig  `yaml:"detectors"`
	Items     []model.SensitiveItem `yaml:"items"`
}

const ReportVersion = "1"

// WriteReport writes a report to a YAML file.
func WriteReport(r *Report, path string) error {
	if r.Version == "" {
		r.Version = ReportVersion
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSaveFailed, err)
	}
	return nil
}

// ReadReport reads a report from a YAML file.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// Selector is anything that accepts per-item selection changes.
type Selector interface {
	SetSelected(id string, selected bool) bool
}

// ApplySelection copies the selected flags of r onto dst. Items are matched
// by id first; items whose id is unknown (a report from another run) are
// matched by type, text and box. It returns how many items were updated.
func ApplySelection(r *Report, dst Selector, current []model.SensitiveItem) int {
	type key struct {
		t    model.DataType
		text string
		x, y float64
	}
	byContent := make(map[key]string, len(current))
	known := make(map[string]bool, len(current))
	for _, it := range current {
		byContent[key{it.Type, it.Text, it.Box.X, it.Box.Y}] = it.ID
		known[it.ID] = true
	}

	applied := 0
	for _, it := range r.Items {
		id := it.ID
		if !known[id] {
			id = byContent[key{it.Type, it.Text, it.Box.X, it.Box.Y}]
		}
		if id != "" && dst.SetSelected(id, it.Selected) {
			applied++
		}
	}
	return applied
}
