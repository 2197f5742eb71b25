package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/espiano/internal/pkg/input"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

const (
	keyWidth      = 7
	keyViewPrefix = "key:"
)

func keyView(n note.Note) string {
	return keyViewPrefix + string(n)
}

// Board draws one view per key and turns mouse presses on them into PointerOrTouch events.
type Board struct {
	notes  note.Set
	labels map[note.Note]string

	mutex       sync.Mutex
	pressed     map[note.Note]bool
	highlighted map[note.Note]bool

	// separate lock, sending may block until the reconciler (calling SetPressed) catches up
	pointerMutex sync.Mutex
	events       chan<- piano.Event // nil once detached
	pointer      note.Note          // note held by mouse button, "" when none
}

func NewBoard(notes note.Set, keymap input.Keymap, events chan<- piano.Event) *Board {
	var labels = make(map[note.Note]string, notes.Len())
	for _, n := range notes.Notes() {
		var keys []string
		for _, k := range keymap.KeysFor(n) {
			keys = append(keys, strings.TrimPrefix(k, "KEY_"))
		}
		labels[n] = strings.Join(keys, ",")
	}

	return &Board{
		notes:       notes,
		labels:      labels,
		events:      events,
		pressed:     make(map[note.Note]bool),
		highlighted: make(map[note.Note]bool),
	}
}

func (b *Board) SetPressed(n note.Note, pressed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.pressed[n] = pressed
}

func (b *Board) SetHighlighted(n note.Note, highlighted bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.highlighted[n] = highlighted
}

func (b *Board) send(e piano.Event) {
	if b.events == nil {
		return
	}
	b.events <- e
}

// press starts the pointer channel for given note, a note held so far is released first (pointer left the key).
func (b *Board) press(n note.Note) {
	b.pointerMutex.Lock()
	defer b.pointerMutex.Unlock()

	if b.pointer == n {
		return
	}
	if b.pointer != "" {
		b.send(piano.EndEvent(piano.PointerOrTouch, b.pointer))
	}
	b.pointer = n
	b.send(piano.StartEvent(piano.PointerOrTouch, n))
}

func (b *Board) release() {
	b.pointerMutex.Lock()
	defer b.pointerMutex.Unlock()

	if b.pointer == "" {
		return
	}
	b.send(piano.EndEvent(piano.PointerOrTouch, b.pointer))
	b.pointer = ""
}

// Detach releases the pointer and stops emitting events, it has to be called before events channel is closed.
func (b *Board) Detach() {
	b.release()
	b.pointerMutex.Lock()
	b.events = nil
	b.pointerMutex.Unlock()
}

func (b *Board) onMouseDown(g *gocui.Gui, v *gocui.View) error {
	if v == nil || !strings.HasPrefix(v.Name(), keyViewPrefix) {
		return nil
	}
	n := note.Note(strings.TrimPrefix(v.Name(), keyViewPrefix))
	if !b.notes.Contains(n) {
		return nil
	}
	b.press(n)
	return nil
}

func (b *Board) onMouseUp(g *gocui.Gui, v *gocui.View) error {
	b.release()
	return nil
}

func (b *Board) bind(g *gocui.Gui) error {
	for _, n := range b.notes.Notes() {
		err := g.SetKeybinding(keyView(n), gocui.MouseLeft, gocui.ModNone, b.onMouseDown)
		if err != nil {
			return fmt.Errorf("binding key %s failed: %w", n, err)
		}
	}
	return g.SetKeybinding("", gocui.MouseRelease, gocui.ModNone, b.onMouseUp)
}

func (b *Board) keyColors(n note.Note) (bg, fg gocui.Attribute) {
	switch {
	case b.pressed[n]:
		return gocui.ColorGreen, gocui.ColorBlack
	case b.highlighted[n]:
		return gocui.ColorYellow, gocui.ColorBlack
	case n.Black():
		return gocui.ColorBlack, gocui.ColorWhite
	default:
		return gocui.ColorWhite, gocui.ColorBlack
	}
}

func (b *Board) Layout(g *gocui.Gui) error {
	err := layoutFrames(g)
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, n := range b.notes.Notes() {
		x0 := 1 + i*keyWidth
		v, err := g.SetView(keyView(n), x0, 1, x0+keyWidth-1, boardHeight-1, 0)
		if err != nil {
			if err != gocui.ErrUnknownView {
				log.Info(fmt.Sprintf("key view %s: %v", n, err), logger.Debug)
				continue
			}
			v.Frame = true
			v.Wrap = false
		}

		v.BgColor, v.FgColor = b.keyColors(n)
		v.Clear()
		fmt.Fprintf(v, "%s\n\n\n%s", n.Pretty(), b.labels[n])
	}
	return nil
}
