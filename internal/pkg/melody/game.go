package melody

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

var (
	ErrUnknownMelody = errors.New("unknown melody")
	ErrEmptyMelody   = errors.New("melody has no notes")
)

type Stats struct {
	Melody   string
	Playing  bool
	Score    int
	Mistakes int
	Position int // index of expected note
	Length   int
}

// Game asks for notes of selected melody one by one, counting correct presses and mistakes.
// Indicator and messenger are called with internal lock held and must not call back into Game.
type Game struct {
	mutex sync.Mutex

	library   Library
	highlight highlighter
	messenger Messenger

	melody   Melody
	index    int
	playing  bool
	score    int
	mistakes int
	message  string
}

func NewGame(library Library, indicator piano.Indicator, messenger Messenger) *Game {
	return &Game{
		library:   library,
		highlight: highlighter{indicator: indicator},
		messenger: messenger,
	}
}

func (g *Game) say(msg string) {
	g.message = msg
	log.Info(msg, logger.Info)
	if g.messenger != nil {
		g.messenger(msg)
	}
}

// SetLibrary replaces available melodies, a running game keeps its melody.
func (g *Game) SetLibrary(library Library) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.library = library
}

func (g *Game) Library() Library {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.library
}

// Start begins a new game with selected melody, counters are reset.
func (g *Game) Start(id string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	m, ok := g.library.Find(id)
	if !ok {
		g.say("Please select a valid melody first.")
		return fmt.Errorf("%w: \"%s\"", ErrUnknownMelody, id)
	}

	g.melody = m
	g.score = 0
	g.mistakes = 0
	g.index = skipRests(m.Notes, 0)

	if g.index >= len(m.Notes) {
		g.playing = false
		g.highlight.set("")
		g.say("Selected melody seems empty or invalid.")
		return fmt.Errorf("%w: \"%s\"", ErrEmptyMelody, id)
	}

	g.playing = true
	g.prompt()
	return nil
}

// Stop aborts a running game.
func (g *Game) Stop() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.playing = false
	g.highlight.set("")
}

func (g *Game) prompt() {
	if g.index >= len(g.melody.Notes) {
		g.playing = false
		g.highlight.set("")
		g.say(fmt.Sprintf("\"%s\" completed! Great job! Score: %d, mistakes: %d. Select another song.",
			g.melody.Name, g.score, g.mistakes))
		return
	}
	n := g.melody.Notes[g.index]
	g.highlight.set(n)
	g.say(fmt.Sprintf("Next note: %s", n.Pretty()))
}

// Press is meant to be registered as reconciler press listener.
func (g *Game) Press(n note.Note, _ piano.Channel) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.playing {
		return
	}

	expected := g.melody.Notes[g.index]
	if n != expected {
		g.mistakes++
		g.say(fmt.Sprintf("Oops! Expected %s, you pressed %s. Try again!", expected.Pretty(), n.Pretty()))
		return
	}

	g.score++
	g.index = skipRests(g.melody.Notes, g.index+1)
	g.prompt()
}

func (g *Game) Stats() Stats {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return Stats{
		Melody:   g.melody.Name,
		Playing:  g.playing,
		Score:    g.score,
		Mistakes: g.mistakes,
		Position: g.index,
		Length:   len(g.melody.Notes),
	}
}

func (g *Game) Message() string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.message
}
