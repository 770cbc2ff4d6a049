package annotation

import (
	"fmt"
	"sort"
	"sync"
)

// LayoutKey identifies the inputs a cached text box size was measured with.
type LayoutKey struct {
	Text        string
	RoundedZoom int
}

// LayoutHint is the cached display-space size of a text box.
type LayoutHint struct {
	Key           LayoutKey
	Width, Height float64
}

// Store is the annotation collaborator consumed by the renderers.
type Store interface {
	ForImage(imageID string) []Annotation
	Text(id string) (string, bool)
	SetText(id, text string) error
	Hint(id string) (LayoutHint, bool)
	SetHint(id string, h LayoutHint)
}

// MemoryStore keeps annotations in memory. Layout hints are kept in a side
// table so cached sizes never mix with authored geometry.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Annotation
	order []string
	hints map[string]LayoutHint
}

// NewMemoryStore returns a store seeded with list.
func NewMemoryStore(list ...Annotation) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*Annotation),
		hints: make(map[string]LayoutHint),
	}
	for _, a := range list {
		s.Put(a)
	}
	return s
}

// Put adds or replaces an annotation. Replacing keeps its original order.
func (s *MemoryStore) Put(a Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	cp := a
	cp.Points = append(cp.Points[:0:0], a.Points...)
	s.items[a.ID] = &cp
}

// ForImage returns copies of the annotations bound to imageID in insertion order.
func (s *MemoryStore) ForImage(imageID string) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Annotation
	for _, id := range s.order {
		a := s.items[id]
		if a.ImageID != imageID {
			continue
		}
		cp := *a
		cp.Points = append(cp.Points[:0:0], a.Points...)
		out = append(out, cp)
	}
	return out
}

// ImageIDs lists every image referenced by the store.
func (s *MemoryStore) ImageIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, a := range s.items {
		if !seen[a.ImageID] {
			seen[a.ImageID] = true
			ids = append(ids, a.ImageID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *MemoryStore) Text(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok {
		return "", false
	}
	return a.Text, true
}

// SetText edits the text payload in place. The cached layout stays; the
// renderer notices the key mismatch and measures again.
func (s *MemoryStore) SetText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return fmt.Errorf("annotation %s not found", id)
	}
	a.Text = text
	return nil
}

func (s *MemoryStore) Hint(id string) (LayoutHint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hints[id]
	return h, ok
}

func (s *MemoryStore) SetHint(id string, h LayoutHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hints[id] = h
}
