package atomsynth

import "sync/atomic"

// Selector picks one option out of a fixed list of labels. Only the selected
// index is part of the unit configuration; the labels are declared by the
// unit.
type Selector struct {
	name     string
	labels   []string
	def      int
	selected atomic.Int32
	owner    *Controls
}

func (s *Selector) Name() string     { return s.name }
func (s *Selector) Labels() []string { return s.labels }
func (s *Selector) Default() int     { return s.def }

// Selected returns the index of the selected label.
func (s *Selector) Selected() int { return int(s.selected.Load()) }

// Label returns the selected label.
func (s *Selector) Label() string {
	if len(s.labels) == 0 {
		return ""
	}
	return s.labels[s.Selected()]
}

// Set selects index, clamped into the range of labels.
func (s *Selector) Set(index int, byUser bool) {
	s.selected.Store(int32(s.clamp(index)))
	s.owner.notify(s.name, byUser)
}

func (s *Selector) clamp(index int) int {
	return max(min(index, len(s.labels)-1), 0)
}
