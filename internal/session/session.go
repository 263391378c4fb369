// Package session owns the redaction state for one loaded image at a time:
// the pristine original, the detection result, the user's selections and
// the latest rendered output.
//
// Detection runs on its own goroutine. Every Load or Detect starts a new
// generation and cancels the previous one; a completion is applied only if
// its generation is still the latest, so a slow run for an earlier image can
// never overwrite the state of the current one.
package session

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/redact"
	"github.com/ivlev/redactshot/internal/selection"
	"github.com/ivlev/redactshot/internal/source"
)

// ErrNoImage is returned by operations that need a loaded image.
var ErrNoImage = errors.New("no image loaded")

// Detector produces the sensitive items of an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image, cfg model.DetectorConfig) ([]model.SensitiveItem, error)
}

// Result is published on Events when a current generation finishes.
type Result struct {
	Generation uint64
	Items      []model.SensitiveItem
	Err        error
}

type Session struct {
	mu       sync.Mutex
	detector Detector
	store    *selection.Store

	ctx    context.Context
	stop   context.CancelFunc
	cancel context.CancelFunc // in-flight detection
	done   chan struct{}      // closed when generation gen completes

	original image.Image
	output   image.Image
	state    State
	gen      uint64
	detected bool // store holds a successful result for original
	lastErr  error

	events chan Result
}

// New creates an empty session.
func New(det Detector, cfg model.DetectorConfig) *Session {
	ctx, stop := context.WithCancel(context.Background())
	return &Session{
		detector: det,
		store:    selection.NewStore(cfg),
		ctx:      ctx,
		stop:     stop,
		state:    Empty,
		events:   make(chan Result, 16),
	}
}

// Events delivers one Result per applied detection. Results that arrive
// while the buffer is full are dropped; Wait and Items stay authoritative.
func (s *Session) Events() <-chan Result {
	return s.events
}

// Load replaces the current image, discards every previous item and starts
// detection on img. It returns the new generation.
func (s *Session) Load(img image.Image) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.original = img
	s.output = nil
	s.detected = false
	s.lastErr = nil
	s.store.ReplaceAll(nil)
	s.state = Loaded
	return s.startLocked()
}

// LoadBytes decodes an in-memory image and loads it. A payload that does
// not decode leaves the session untouched.
func (s *Session) LoadBytes(data []byte) (uint64, error) {
	img, _, err := source.DecodeBytes(data)
	if err != nil {
		return 0, err
	}
	return s.Load(img), nil
}

// Detect re-runs detection on the current image with the current config.
// If it fails, the previous items are kept.
func (s *Session) Detect() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.original == nil {
		return 0, ErrNoImage
	}
	return s.startLocked(), nil
}

func (s *Session) startLocked() uint64 {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = Detecting

	img, cfg := s.original, s.store.Config()
	go func() {
		defer close(done)
		items, err := s.detector.Detect(ctx, img, cfg)
		s.complete(gen, items, err)
	}()

	log.Debug().Uint64("generation", gen).Str("detectors", cfg.String()).Msg("detection_started")
	return gen
}

func (s *Session) complete(gen uint64, items []model.SensitiveItem, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.Debug().Uint64("generation", gen).Msg("detection_stale_dropped")
		return
	}
	s.cancel()
	s.cancel = nil

	if err != nil {
		s.lastErr = err
		if s.detected {
			s.state = Detected
		} else {
			s.state = Loaded
		}
		log.Warn().Err(err).Uint64("generation", gen).Msg("detection_failed")
	} else {
		s.store.ReplaceAll(items)
		s.detected = true
		s.lastErr = nil
		s.state = Detected
		log.Info().Uint64("generation", gen).Int("items", len(items)).Msg("detection_applied")
	}
	res := Result{Generation: gen, Items: s.store.Items(), Err: err}
	s.mu.Unlock()

	select {
	case s.events <- res:
	default:
		log.Warn().Uint64("generation", gen).Msg("session_event_dropped")
	}
}

// Wait blocks until the latest detection has finished and returns its
// error. If a newer detection starts while waiting, Wait follows it.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		done, gen := s.done, s.gen
		s.mu.Unlock()
		if done == nil {
			return ErrNoImage
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		if s.gen == gen {
			err := s.lastErr
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the id of the most recently started detection.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) Items() []model.SensitiveItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Items()
}

func (s *Session) ActiveItems() []model.SensitiveItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ActiveItems()
}

func (s *Session) Config() model.DetectorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Config()
}

// Original returns the unmodified loaded image.
func (s *Session) Original() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// ToggleItem flips one item's selection and re-renders. Unknown ids are a
// no-op and report false.
func (s *Session) ToggleItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.ToggleItem(id) {
		return false
	}
	s.rerenderLocked()
	return true
}

// SetSelected sets one item's selection and re-renders.
func (s *Session) SetSelected(id string, selected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.SetSelected(id, selected) {
		return false
	}
	s.rerenderLocked()
	return true
}

// SetConfig changes the detector flags. It never cancels a running
// detection; the new flags apply to the next detection and, right away, to
// which items count toward the mask.
func (s *Session) SetConfig(cfg model.DetectorConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetConfig(cfg)
	s.rerenderLocked()
}

// Render redacts the original image with the currently active items.
func (s *Session) Render() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil, ErrNoImage
	}
	return s.renderLocked(), nil
}

// Output returns the most recent rendering, or nil if nothing has been
// rendered since the image was loaded.
func (s *Session) Output() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// rerenderLocked refreshes Output whenever the store holds a result for
// the current image, including while a re-detection of it is running.
func (s *Session) rerenderLocked() {
	if s.detected {
		s.renderLocked()
	}
}

func (s *Session) renderLocked() image.Image {
	b := s.original.Bounds()
	out := redact.Redact(s.original, s.store.ActiveRects(b.Dx(), b.Dy()))
	s.output = out
	if s.state == Detected {
		s.state = Rendered
	}
	return out
}

// Close cancels any running detection.
func (s *Session) Close() {
	s.stop()
}
