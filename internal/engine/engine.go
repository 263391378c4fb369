// Package engine redacts every page of a source concurrently and writes the
// results to an output directory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/redactshot/internal/config"
	"github.com/ivlev/redactshot/internal/export"
	"github.com/ivlev/redactshot/internal/geometry"
	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/session"
	"github.com/ivlev/redactshot/internal/source"
)

// PageResult describes what happened to one page.
type PageResult struct {
	Index  int
	Name   string
	Output string
	Report string
	Items  int
	Active int
	Masked int // pixels covered by fill
	Err    error
}

type Project struct {
	Config   *config.Config
	Source   source.Source
	Detector session.Detector

	// WriteReports stores a detection report next to every output image.
	WriteReports bool
}

func NewProject(cfg *config.Config, src source.Source, det session.Detector) *Project {
	return &Project{
		Config:   cfg,
		Source:   src,
		Detector: det,
	}
}

// Run redacts every page. Pages that fail are reported in their
// PageResult and in the returned error; the remaining pages are still
// processed. Cancelling ctx stops work that has not started yet.
func (p *Project) Run(ctx context.Context) ([]PageResult, error) {
	startTime := time.Now()

	pageCount := p.Source.PageCount()
	if pageCount == 0 {
		return nil, fmt.Errorf("source has no pages")
	}

	workers := p.Config.Workers
	if workers > pageCount {
		workers = pageCount
	}
	if workers < 1 {
		workers = 1
	}

	log.Info().
		Int("pages", pageCount).
		Int("workers", workers).
		Str("detectors", p.Config.Detectors.String()).
		Str("output_dir", p.Config.OutputDir).
		Msg("batch_started")

	results := make([]PageResult, pageCount)
	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < pageCount; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = PageResult{Index: i, Name: p.Source.PageName(i), Err: err}
				return err
			}
			res := p.processPage(gctx, i)
			results[i] = res

			mu.Lock()
			done++
			n := done
			mu.Unlock()

			if res.Err != nil {
				log.Error().Err(res.Err).Int("page", i+1).Str("name", res.Name).Msg("page_failed")
			} else {
				log.Info().Int("page", i+1).Int("of", pageCount).Int("items", res.Items).
					Int("redacted", res.Active).Int("masked_px", res.Masked).Int("done", n).Msg("page_ready")
			}
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return res.Err
			}
			return nil
		})
	}

	waitErr := g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("page %d (%s): %w", r.Index+1, r.Name, r.Err))
		}
	}

	log.Info().
		Int("pages", pageCount).
		Int("failed", len(errs)).
		Dur("elapsed", time.Since(startTime)).
		Msg("batch_finished")

	if waitErr != nil && len(errs) == 0 {
		errs = append(errs, waitErr)
	}
	return results, errors.Join(errs...)
}

func (p *Project) processPage(ctx context.Context, i int) PageResult {
	res := PageResult{Index: i, Name: p.Source.PageName(i)}

	img, err := p.Source.RenderPage(i, p.Config.DPI)
	if err != nil {
		res.Err = err
		return res
	}

	s := session.New(p.Detector, p.Config.Detectors)
	defer s.Close()
	s.Load(img)
	if err := s.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	out, err := s.Render()
	if err != nil {
		res.Err = err
		return res
	}

	res.Items = len(s.Items())
	res.Active = len(s.ActiveItems())
	b := img.Bounds()
	res.Masked = MaskedArea(s.ActiveItems(), b.Dx(), b.Dy())
	res.Output = filepath.Join(p.Config.OutputDir, outputName(res.Name))
	if err := export.SavePNG(res.Output, out); err != nil {
		res.Err = err
		return res
	}

	if p.WriteReports {
		res.Report = strings.TrimSuffix(res.Output, filepath.Ext(res.Output)) + ".yaml"
		report := &export.Report{
			Source:    res.Name,
			CreatedAt: time.Now().UTC(),
			Width:     b.Dx(),
			Height:    b.Dy(),
			Detectors: p.Config.Detectors,
			Items:     s.Items(),
		}
		if err := export.WriteReport(report, res.Report); err != nil {
			res.Err = err
			return res
		}
	}
	return res
}

func outputName(pageName string) string {
	base := strings.TrimSuffix(pageName, filepath.Ext(pageName))
	return base + "_redacted.png"
}

// MaskedArea sums the pixel area of the rectangles items map to on a
// width x height image. Overlaps are counted twice.
func MaskedArea(items []model.SensitiveItem, width, height int) int {
	area := 0
	for _, it := range items {
		r := geometry.ToPixelRect(it.Box, width, height)
		area += r.Dx() * r.Dy()
	}
	return area
}
