package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/redactshot/internal/geometry"
	"github.com/ivlev/redactshot/internal/model"
)

// gatedDetector returns canned results per image and can hold a run until
// its gate is closed.
type gatedDetector struct {
	mu           sync.Mutex
	gates        map[image.Image]chan struct{}
	items        map[image.Image][]model.SensitiveItem
	errs         map[image.Image]error
	ignoreCancel bool
	calls        atomic.Int32
}

func newGatedDetector() *gatedDetector {
	return &gatedDetector{
		gates: map[image.Image]chan struct{}{},
		items: map[image.Image][]model.SensitiveItem{},
		errs:  map[image.Image]error{},
	}
}

func (d *gatedDetector) Detect(ctx context.Context, img image.Image, cfg model.DetectorConfig) ([]model.SensitiveItem, error) {
	d.calls.Add(1)
	d.mu.Lock()
	gate, items, err := d.gates[img], d.items[img], d.errs[img]
	d.mu.Unlock()

	if gate != nil {
		if d.ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.SensitiveItem, len(items))
	for i, it := range items {
		out[i] = model.NewItem(it.Type, it.Text, it.Box)
	}
	return out, nil
}

func (d *gatedDetector) set(img image.Image, items []model.SensitiveItem, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[img] = items
	d.errs[img] = err
}

func (d *gatedDetector) hold(img image.Image) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	gate := make(chan struct{})
	d.gates[img] = gate
	return gate
}

func (d *gatedDetector) release(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.gates, img)
}

func filled(w, h int, c color.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = c.Y
	}
	return img
}

var (
	emailItem = model.SensitiveItem{Type: model.Email, Text: "a@b.com", Box: geometry.NormRect{X: 0, Y: 0.5, W: 0.5, H: 0.5}}
	phoneItem = model.SensitiveItem{Type: model.Phone, Text: "555-123-4567", Box: geometry.NormRect{X: 0.5, Y: 0, W: 0.5, H: 0.5}}
)

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLifecycle(t *testing.T) {
	det := newGatedDetector()
	img := filled(100, 100, color.Gray{Y: 180})
	det.set(img, []model.SensitiveItem{emailItem, phoneItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()
	assert.Equal(t, Empty, s.State())

	gate := det.hold(img)
	s.Load(img)
	assert.Equal(t, Detecting, s.State())
	close(gate)

	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, Detected, s.State())

	items := s.Items()
	require.Len(t, items, 2)
	for _, it := range items {
		assert.True(t, it.Selected)
	}

	out, err := s.Render()
	require.NoError(t, err)
	assert.Equal(t, Rendered, s.State())
	assert.Equal(t, color.Gray{Y: 0}, out.At(10, 10))
	assert.Equal(t, color.Gray{Y: 0}, out.At(80, 80))

	res := <-s.Events()
	assert.Equal(t, uint64(1), res.Generation)
	assert.Len(t, res.Items, 2)
}

func TestToggleAndConfigRerender(t *testing.T) {
	det := newGatedDetector()
	img := filled(100, 100, color.Gray{Y: 180})
	det.set(img, []model.SensitiveItem{emailItem, phoneItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(img)
	require.NoError(t, s.Wait(waitCtx(t)))

	s.SetConfig(model.AllDetectors().With(model.Phone, false))
	assert.Equal(t, Rendered, s.State())
	out := s.Output()
	require.NotNil(t, out)
	assert.Equal(t, color.Gray{Y: 0}, out.At(10, 10), "email still redacted")
	assert.Equal(t, color.Gray{Y: 180}, out.At(80, 80), "phone region restored")

	var emailID string
	for _, it := range s.Items() {
		if it.Type == model.Email {
			emailID = it.ID
		}
	}
	require.True(t, s.ToggleItem(emailID))
	assert.Equal(t, color.Gray{Y: 180}, s.Output().At(10, 10))

	assert.False(t, s.ToggleItem("item_gone"))

	s.SetConfig(model.AllDetectors())
	assert.Equal(t, color.Gray{Y: 0}, s.Output().At(80, 80), "phone keeps its selection")
	assert.Equal(t, color.Gray{Y: 180}, s.Output().At(10, 10))

	assert.Equal(t, color.Gray{Y: 180}, s.Original().At(10, 10), "original is never modified")
}

func TestToggleDuringRedetectionRefreshesOutput(t *testing.T) {
	det := newGatedDetector()
	img := filled(100, 100, color.Gray{Y: 180})
	det.set(img, []model.SensitiveItem{emailItem, phoneItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(img)
	require.NoError(t, s.Wait(waitCtx(t)))
	_, err := s.Render()
	require.NoError(t, err)

	gate := det.hold(img)
	_, err = s.Detect()
	require.NoError(t, err)
	assert.Equal(t, Detecting, s.State())

	var emailID string
	for _, it := range s.Items() {
		if it.Type == model.Email {
			emailID = it.ID
		}
	}
	require.True(t, s.ToggleItem(emailID))
	assert.Equal(t, Detecting, s.State())
	assert.Equal(t, color.Gray{Y: 180}, s.Output().At(10, 10))
	assert.Equal(t, color.Gray{Y: 0}, s.Output().At(80, 80))

	s.SetConfig(model.AllDetectors().With(model.Phone, false))
	assert.Equal(t, color.Gray{Y: 180}, s.Output().At(80, 80))

	close(gate)
	require.NoError(t, s.Wait(waitCtx(t)))
}

func TestStaleCompletionIsDropped(t *testing.T) {
	det := newGatedDetector()
	det.ignoreCancel = true
	first := filled(100, 100, color.Gray{Y: 100})
	second := filled(100, 100, color.Gray{Y: 200})
	det.set(first, []model.SensitiveItem{emailItem, phoneItem}, nil)
	det.set(second, []model.SensitiveItem{phoneItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()

	gate := det.hold(first)
	s.Load(first)
	s.mu.Lock()
	firstDone := s.done
	s.mu.Unlock()

	gen := s.Load(second)
	require.NoError(t, s.Wait(waitCtx(t)))
	require.Len(t, s.Items(), 1)

	close(gate)
	<-firstDone

	assert.Equal(t, gen, s.Generation())
	items := s.Items()
	require.Len(t, items, 1, "stale result must not overwrite the current image")
	assert.Equal(t, model.Phone, items[0].Type)
	assert.Equal(t, second, s.Original())
}

func TestNewLoadCancelsInFlightDetection(t *testing.T) {
	det := newGatedDetector()
	first := filled(10, 10, color.Gray{Y: 1})
	second := filled(10, 10, color.Gray{Y: 2})
	det.hold(first)

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(first)
	s.mu.Lock()
	firstDone := s.done
	s.mu.Unlock()

	s.Load(second)

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("first detection was not cancelled")
	}
	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, Detected, s.State())
}

func TestFailedRedetectionKeepsItems(t *testing.T) {
	det := newGatedDetector()
	img := filled(50, 50, color.Gray{Y: 90})
	det.set(img, []model.SensitiveItem{emailItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(img)
	require.NoError(t, s.Wait(waitCtx(t)))
	before := s.Items()

	det.set(img, nil, model.ErrRecognitionFailed)
	_, err := s.Detect()
	require.NoError(t, err)

	err = s.Wait(waitCtx(t))
	assert.ErrorIs(t, err, model.ErrRecognitionFailed)
	assert.Equal(t, before, s.Items())
	assert.Equal(t, Detected, s.State())

	res := <-s.Events()
	assert.NoError(t, res.Err)
	res = <-s.Events()
	assert.ErrorIs(t, res.Err, model.ErrRecognitionFailed)
}

func TestFailedFirstDetectionReturnsToLoaded(t *testing.T) {
	det := newGatedDetector()
	img := filled(20, 20, color.Gray{Y: 90})
	det.set(img, nil, errors.New("engine crashed"))

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(img)

	assert.Error(t, s.Wait(waitCtx(t)))
	assert.Equal(t, Loaded, s.State())
	assert.Empty(t, s.Items())

	out, err := s.Render()
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 90}, out.At(5, 5))
}

func TestLoadBytesDecodeFailureLeavesState(t *testing.T) {
	det := newGatedDetector()
	img := filled(20, 20, color.Gray{Y: 90})
	det.set(img, []model.SensitiveItem{emailItem}, nil)

	s := New(det, model.AllDetectors())
	defer s.Close()
	s.Load(img)
	require.NoError(t, s.Wait(waitCtx(t)))
	gen := s.Generation()

	_, err := s.LoadBytes([]byte("not an image"))
	assert.ErrorIs(t, err, model.ErrImageDecodeFailed)
	assert.Equal(t, gen, s.Generation())
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, img, s.Original())
}

func TestOperationsWithoutImage(t *testing.T) {
	s := New(newGatedDetector(), model.AllDetectors())
	defer s.Close()

	_, err := s.Detect()
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = s.Render()
	assert.ErrorIs(t, err, ErrNoImage)
	assert.ErrorIs(t, s.Wait(context.Background()), ErrNoImage)
	assert.Nil(t, s.Output())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "detecting", Detecting.String())
	assert.Equal(t, "unknown", State(99).String())
}
