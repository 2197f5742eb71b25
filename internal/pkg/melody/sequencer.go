package melody

import (
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

// Messenger receives user facing messages of a sequencer.
type Messenger func(msg string)

// highlighter keeps at most one note highlighted.
type highlighter struct {
	indicator piano.Indicator
	current   note.Note
}

func (h *highlighter) set(n note.Note) {
	if h.current == n {
		return
	}
	if h.current != "" {
		h.indicator.SetHighlighted(h.current, false)
	}
	h.current = n
	if n != "" {
		h.indicator.SetHighlighted(n, true)
	}
}

// skipRests returns index of the first non-rest note at or after i.
func skipRests(notes []note.Note, i int) int {
	for i < len(notes) && notes[i] == Rest {
		i++
	}
	return i
}
