// Package selection keeps the current detection result together with the
// user's per-item choices and detector flags.
package selection

import (
	"image"

	"github.com/ivlev/redactshot/internal/geometry"
	"github.com/ivlev/redactshot/internal/model"
)

// Store holds the live item collection and detector config. A Store is not
// safe for concurrent use; the owning session serializes access.
type Store struct {
	items  []model.SensitiveItem
	index  map[string]int
	config model.DetectorConfig
}

func NewStore(cfg model.DetectorConfig) *Store {
	return &Store{index: map[string]int{}, config: cfg}
}

// ReplaceAll discards every current item and installs items.
func (s *Store) ReplaceAll(items []model.SensitiveItem) {
	s.items = make([]model.SensitiveItem, len(items))
	copy(s.items, items)
	s.index = make(map[string]int, len(items))
	for i, it := range s.items {
		s.index[it.ID] = i
	}
}

// ToggleItem flips the selection of one item. Unknown ids are ignored,
// since a toggle can arrive after a newer detection removed the item.
func (s *Store) ToggleItem(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.items[i].Selected = !s.items[i].Selected
	return true
}

// SetSelected sets the selection of one item; unknown ids are ignored.
func (s *Store) SetSelected(id string, selected bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.items[i].Selected = selected
	return true
}

func (s *Store) SetConfig(cfg model.DetectorConfig) {
	s.config = cfg
}

func (s *Store) Config() model.DetectorConfig {
	return s.config
}

// Len returns the number of items.
func (s *Store) Len() int {
	return len(s.items)
}

// Item returns the item with the given id.
func (s *Store) Item(id string) (model.SensitiveItem, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.SensitiveItem{}, false
	}
	return s.items[i], true
}

// Items returns a copy of every item, active or not.
func (s *Store) Items() []model.SensitiveItem {
	out := make([]model.SensitiveItem, len(s.items))
	copy(out, s.items)
	return out
}

// ActiveItems returns the items that are selected and whose detector is
// enabled. Turning a detector off only hides its items here; their
// selection is kept for when it is turned back on.
func (s *Store) ActiveItems() []model.SensitiveItem {
	var out []model.SensitiveItem
	for _, it := range s.items {
		if it.Selected && s.config.Enabled(it.Type) {
			out = append(out, it)
		}
	}
	return out
}

// ActiveRects maps the active items into pixel space of a width x height
// image, skipping boxes that cover no pixels.
func (s *Store) ActiveRects(width, height int) []image.Rectangle {
	active := s.ActiveItems()
	rects := make([]image.Rectangle, 0, len(active))
	for _, it := range active {
		r := geometry.ToPixelRect(it.Box, width, height)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return rects
}
