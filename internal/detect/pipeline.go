// Package detect turns recognized text lines into positioned sensitive
// items.
package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/redactshot/internal/classifier"
	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/ocr"
)

// Pipeline runs a recognizer and classifies every line it returns.
type Pipeline struct {
	Recognizer ocr.Recognizer
}

func NewPipeline(rec ocr.Recognizer) *Pipeline {
	return &Pipeline{Recognizer: rec}
}

// Detect returns the sensitive items in img under cfg. Every item starts
// selected and has a fresh id. With no detector enabled the recognizer is
// not invoked and the result is empty.
//
// Items are returned in reading order (top to bottom, then left to right)
// so the result does not depend on the order the recognizer reports lines.
func (p *Pipeline) Detect(ctx context.Context, img image.Image, cfg model.DetectorConfig) ([]model.SensitiveItem, error) {
	cls := classifier.New(cfg)
	if !cls.Enabled() {
		return []model.SensitiveItem{}, nil
	}
	if img == nil {
		return nil, fmt.Errorf("detect: nil image: %w", model.ErrImageDecodeFailed)
	}

	start := time.Now()
	lines, err := p.Recognizer.Recognize(ctx, img)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrRecognitionFailed, err)
	}

	items := make([]model.SensitiveItem, 0, len(lines))
	for _, line := range lines {
		m, ok := cls.Classify(line.Text)
		if !ok {
			continue
		}
		items = append(items, model.NewItem(m.Type, m.Text, line.Box))
	}
	SortItems(items)

	log.Debug().
		Int("lines", len(lines)).
		Int("items", len(items)).
		Str("detectors", cfg.String()).
		Dur("elapsed", time.Since(start)).
		Msg("detection_complete")

	return items, nil
}

// SortItems orders items top to bottom, then left to right, then by type
// and text, ignoring ids.
func SortItems(items []model.SensitiveItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		// Higher Y is closer to the top in bottom-left coordinates.
		if top1, top2 := a.Box.Y+a.Box.H, b.Box.Y+b.Box.H; top1 != top2 {
			return top1 > top2
		}
		if a.Box.X != b.Box.X {
			return a.Box.X < b.Box.X
		}
		if a.Box.W != b.Box.W {
			return a.Box.W < b.Box.W
		}
		if a.Box.H != b.Box.H {
			return a.Box.H < b.Box.H
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Text < b.Text
	})
}
