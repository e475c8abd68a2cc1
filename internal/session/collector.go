package session

import (
	"sort"

	"quiz-miniapp/internal/domain"
)

// Interaction is the mutable answer state of the current question. A fresh
// value is created for every question; Freeze snapshots it into a recorded answer.
type Interaction interface {
	// Complete reports whether a manual advance is allowed.
	Complete() bool
	Freeze() domain.Answer
}

// NewInteraction returns the empty interaction state for q.
func NewInteraction(q domain.Question) Interaction {
	switch q := q.(type) {
	case domain.MultipleChoice:
		if q.MultiSelect {
			return &MultiChoice{selected: make(map[int]struct{})}
		}
		return &SingleChoice{}
	case domain.FillBlank:
		return &Blanks{
			values:  make([]string, q.BlankCount()),
			options: append([]string(nil), q.Options...),
		}
	}
	return nil
}

// SingleChoice holds at most one selected option index.
type SingleChoice struct {
	index  int
	chosen bool
}

// Select overwrites the current selection. Indices are not bounds-checked.
func (s *SingleChoice) Select(i int) {
	s.index = i
	s.chosen = true
}

// Selected returns the selection, if any.
func (s *SingleChoice) Selected() (int, bool) {
	return s.index, s.chosen
}

func (s *SingleChoice) Complete() bool { return s.chosen }

func (s *SingleChoice) Freeze() domain.Answer {
	if !s.chosen {
		return domain.SingleAnswer{Index: domain.Unanswered}
	}
	return domain.SingleAnswer{Index: s.index}
}

// MultiChoice holds a set of selected option indices.
type MultiChoice struct {
	selected map[int]struct{}
}

// Toggle inserts i if absent and removes it if present.
func (m *MultiChoice) Toggle(i int) {
	if _, ok := m.selected[i]; ok {
		delete(m.selected, i)
		return
	}
	m.selected[i] = struct{}{}
}

// Selected returns the selected indices in ascending order.
func (m *MultiChoice) Selected() []int {
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (m *MultiChoice) Complete() bool { return len(m.selected) > 0 }

func (m *MultiChoice) Freeze() domain.Answer {
	return domain.MultiAnswer{Indices: m.Selected()}
}

// Blanks holds the option text dropped into each blank of a fill-blank question.
// An option sits in at most one blank; whether it is used is derived from the
// blanks themselves.
type Blanks struct {
	values  []string
	options []string
}

// Place drops text into blank pos. If text already sits in another blank it is
// moved; whatever pos held before returns to the pool.
func (b *Blanks) Place(pos int, text string) error {
	if pos < 0 || pos >= len(b.values) {
		return ErrBlankOutOfRange
	}
	if text == "" {
		return b.Clear(pos)
	}
	if !b.isOption(text) {
		return ErrUnknownOption
	}
	for i, v := range b.values {
		if i != pos && v == text {
			b.values[i] = ""
		}
	}
	b.values[pos] = text
	return nil
}

// Clear empties blank pos, returning its text to the pool.
func (b *Blanks) Clear(pos int) error {
	if pos < 0 || pos >= len(b.values) {
		return ErrBlankOutOfRange
	}
	b.values[pos] = ""
	return nil
}

// Values returns a copy of the blank contents; "" marks an unset blank.
func (b *Blanks) Values() []string {
	return append([]string(nil), b.values...)
}

// Available returns the options not currently placed in any blank, in option order.
func (b *Blanks) Available() []string {
	out := make([]string, 0, len(b.options))
	for _, o := range b.options {
		if !b.isPlaced(o) {
			out = append(out, o)
		}
	}
	return out
}

func (b *Blanks) Complete() bool {
	for _, v := range b.values {
		if v == "" {
			return false
		}
	}
	return true
}

func (b *Blanks) Freeze() domain.Answer {
	return domain.BlankAnswer{Values: b.Values()}
}

func (b *Blanks) isOption(text string) bool {
	for _, o := range b.options {
		if o == text {
			return true
		}
	}
	return false
}

func (b *Blanks) isPlaced(text string) bool {
	for _, v := range b.values {
		if v == text {
			return true
		}
	}
	return false
}
