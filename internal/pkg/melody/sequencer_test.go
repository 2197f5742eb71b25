package melody

import (
	"testing"

	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/stretchr/testify/assert"
)

type highlights struct {
	on map[note.Note]bool
}

func newHighlights() *highlights {
	return &highlights{on: make(map[note.Note]bool)}
}

func (h *highlights) SetPressed(note.Note, bool) {}

func (h *highlights) SetHighlighted(n note.Note, on bool) {
	if on {
		h.on[n] = true
	} else {
		delete(h.on, n)
	}
}

func (h *highlights) only() note.Note {
	if len(h.on) != 1 {
		return ""
	}
	for n := range h.on {
		return n
	}
	return ""
}

func TestTraining(t *testing.T) {
	h := newHighlights()
	var messages []string
	tune := melodyOf("tune", "Tune", "", "e4", "", "c4")
	tr := NewTraining(note.NewSet("c4", "e4"), 2, tune, h, func(msg string) { messages = append(messages, msg) })

	tr.Start()
	assert.Equal(t, "Press the C4 key (1/2).", tr.Message())
	assert.Equal(t, note.Note("c4"), h.only())

	tr.Press("c4", piano.Device)
	assert.Equal(t, "Press the C4 key (2/2).", tr.Message())

	tr.Press("e4", piano.PointerOrTouch)
	assert.Equal(t, "That was E4, press the C4 key. Try again!", tr.Message())

	tr.Press("c4", piano.PhysicalKeyboard)
	assert.Equal(t, "Press the E4 key (1/2).", tr.Message())
	assert.Equal(t, note.Note("e4"), h.only())

	tr.Press("e4", piano.Device)
	tr.Press("e4", piano.Device)
	assert.Equal(t, "Basic training complete! Play Tune. Press the E4 key.", tr.Message())
	assert.Equal(t, note.Note("e4"), h.only())
	assert.False(t, tr.Done())

	tr.Press("e4", piano.Device)
	assert.Equal(t, "Play Tune. Press the C4 key.", tr.Message())
	tr.Press("c4", piano.Device)
	assert.Equal(t, "Tune complete! Great job!", tr.Message())
	assert.True(t, tr.Done())
	assert.Equal(t, 0, len(h.on))

	// presses after completion are ignored
	tr.Press("c4", piano.Device)
	assert.Equal(t, "Tune complete! Great job!", tr.Message())
	assert.Equal(t, 8, len(messages))
}

func TestTrainingWithoutMelody(t *testing.T) {
	tr := NewTraining(note.NewSet("c4"), 1, Melody{}, newHighlights(), nil)
	tr.Start()
	tr.Press("c4", piano.Device)
	assert.True(t, tr.Done())
	assert.Equal(t, "Basic training complete! All trainings complete! Great job!", tr.Message())
}

func TestGame(t *testing.T) {
	h := newHighlights()
	library := Library{melodyOf("tune", "Tune", "", "", "c4", "", "d4", "")}
	g := NewGame(library, h, nil)

	// not started yet
	g.Press("c4", piano.Device)
	assert.Equal(t, Stats{}, g.Stats())

	assert.NoError(t, g.Start("tune"))
	assert.Equal(t, "Next note: C4", g.Message())
	assert.Equal(t, note.Note("c4"), h.only())
	assert.Equal(t, 2, g.Stats().Position)

	g.Press("e4", piano.PointerOrTouch)
	assert.Equal(t, "Oops! Expected C4, you pressed E4. Try again!", g.Message())
	assert.Equal(t, note.Note("c4"), h.only())

	g.Press("c4", piano.PointerOrTouch)
	assert.Equal(t, "Next note: D4", g.Message())
	assert.Equal(t, note.Note("d4"), h.only())

	g.Press("d4", piano.Device)
	assert.Equal(t, "\"Tune\" completed! Great job! Score: 2, mistakes: 1. Select another song.", g.Message())
	assert.Equal(t, Stats{Melody: "Tune", Playing: false, Score: 2, Mistakes: 1, Position: 6, Length: 6}, g.Stats())
	assert.Equal(t, 0, len(h.on))

	// restart resets counters
	assert.NoError(t, g.Start("tune"))
	assert.Equal(t, 0, g.Stats().Score)
	assert.Equal(t, 0, g.Stats().Mistakes)
	assert.True(t, g.Stats().Playing)

	g.Stop()
	assert.False(t, g.Stats().Playing)
	assert.Equal(t, 0, len(h.on))
}

func TestGameInvalidMelody(t *testing.T) {
	g := NewGame(Library{melodyOf("silence", "Silence", "", "")}, newHighlights(), nil)

	assert.ErrorIs(t, g.Start("missing"), ErrUnknownMelody)
	assert.Equal(t, "Please select a valid melody first.", g.Message())

	assert.ErrorIs(t, g.Start("silence"), ErrEmptyMelody)
	assert.Equal(t, "Selected melody seems empty or invalid.", g.Message())
	assert.False(t, g.Stats().Playing)
}
