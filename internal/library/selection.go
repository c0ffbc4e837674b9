package library

import (
	"sort"
	"sync"
)

// Selection is the multi-select state of a volume list.
// It becomes Active on the first selected id and Inactive again on Finish or
// when the last id is deselected.
type Selection struct {
	mu     sync.Mutex
	active bool
	ids    map[string]struct{}

	Active   *Observable[bool]
	Selected *Observable[[]string]
}

func NewSelection() *Selection {
	return &Selection{
		ids:      make(map[string]struct{}),
		Active:   NewObservable(false),
		Selected: NewObservable([]string{}),
	}
}

// Begin enters multi-select with id selected (the long-press gesture).
func (s *Selection) Begin(id string) {
	s.mu.Lock()
	s.active = true
	s.ids[id] = struct{}{}
	s.mu.Unlock()
	s.publish()
}

// Toggle flips id. Selecting while Inactive activates; deselecting the last id deactivates.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.active = len(s.ids) > 0
	s.mu.Unlock()
	s.publish()
}

// SelectAll selects every id. It only applies while Active and reports whether it did.
func (s *Selection) SelectAll(ids []string) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	s.publish()
	return true
}

// Clear empties the selection but stays in multi-select mode.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
	s.publish()
}

// Finish empties the selection and leaves multi-select mode.
func (s *Selection) Finish() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.active = false
	s.mu.Unlock()
	s.publish()
}

func (s *Selection) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids, sorted.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Selection) sortedLocked() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Selection) publish() {
	s.mu.Lock()
	active := s.active
	ids := s.sortedLocked()
	s.mu.Unlock()

	s.Active.Set(active)
	s.Selected.Set(ids)
}
