package melody

import (
	"fmt"
	"sync"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

const DefaultTrainingPresses = 3

type stage int

const (
	stageIdle stage = iota
	stageBasic
	stageMelody
	stageDone
)

// Training walks through every note, each has to be pressed several times, then follows a melody note by note.
// Indicator and messenger are called with internal lock held and must not call back into Training.
type Training struct {
	mutex sync.Mutex

	notes     []note.Note
	presses   int
	melody    Melody
	highlight highlighter
	messenger Messenger

	stage       stage
	noteIndex   int
	pressCount  int
	melodyIndex int
	message     string
}

func NewTraining(notes note.Set, presses int, melody Melody, indicator piano.Indicator, messenger Messenger) *Training {
	if presses <= 0 {
		presses = DefaultTrainingPresses
	}
	return &Training{
		notes:     notes.Notes(),
		presses:   presses,
		melody:    melody,
		highlight: highlighter{indicator: indicator},
		messenger: messenger,
	}
}

func (t *Training) say(msg string) {
	t.message = msg
	log.Info(msg, logger.Info)
	if t.messenger != nil {
		t.messenger(msg)
	}
}

// Start (re)starts the training from the first note.
func (t *Training) Start() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.stage = stageBasic
	t.noteIndex = 0
	t.pressCount = 0
	t.melodyIndex = 0
	t.promptBasic()
}

func (t *Training) promptBasic() {
	if t.noteIndex >= len(t.notes) {
		t.stage = stageMelody
		t.melodyIndex = skipRests(t.melody.Notes, 0)
		t.promptMelody("Basic training complete! ")
		return
	}
	n := t.notes[t.noteIndex]
	t.highlight.set(n)
	t.say(fmt.Sprintf("Press the %s key (%d/%d).", n.Pretty(), t.pressCount+1, t.presses))
}

func (t *Training) promptMelody(prefix string) {
	if t.melodyIndex >= len(t.melody.Notes) {
		t.stage = stageDone
		t.highlight.set("")
		if t.melody.Playable() == 0 {
			t.say(prefix + "All trainings complete! Great job!")
			return
		}
		t.say(fmt.Sprintf("%s%s complete! Great job!", prefix, t.melody.Name))
		return
	}
	n := t.melody.Notes[t.melodyIndex]
	t.highlight.set(n)
	t.say(fmt.Sprintf("%sPlay %s. Press the %s key.", prefix, t.melody.Name, n.Pretty()))
}

// Press is meant to be registered as reconciler press listener.
func (t *Training) Press(n note.Note, _ piano.Channel) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch t.stage {
	case stageBasic:
		expected := t.notes[t.noteIndex]
		if n != expected {
			t.say(fmt.Sprintf("That was %s, press the %s key. Try again!", n.Pretty(), expected.Pretty()))
			return
		}
		t.pressCount++
		if t.pressCount >= t.presses {
			t.noteIndex++
			t.pressCount = 0
		}
		t.promptBasic()
	case stageMelody:
		expected := t.melody.Notes[t.melodyIndex]
		if n != expected {
			t.say(fmt.Sprintf("That was %s, press the %s key. Try again!", n.Pretty(), expected.Pretty()))
			return
		}
		t.melodyIndex = skipRests(t.melody.Notes, t.melodyIndex+1)
		t.promptMelody("")
	}
}

func (t *Training) Done() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.stage == stageDone
}

func (t *Training) Message() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.message
}
