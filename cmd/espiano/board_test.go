package main

import (
	"testing"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/espiano/internal/pkg/input"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

var testNotes = note.NewSet("c4", "d4", "e4", "f4", "g4", "a4", "b4", "c5")

func drainEvents(events chan piano.Event) []piano.Event {
	var out []piano.Event
	for {
		select {
		case e := <-events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestBoardPointer(t *testing.T) {
	events := make(chan piano.Event, 16)
	b := NewBoard(testNotes, input.Keymap{evdev.KEY_A: "c4", evdev.KEY_Q: "c4"}, events)
	assert.Equal(t, "A,Q", b.labels["c4"])
	assert.Equal(t, "", b.labels["d4"])

	b.press("c4")
	b.press("c4") // mouse held without movement
	assert.Equal(t, []piano.Event{piano.StartEvent(piano.PointerOrTouch, "c4")}, drainEvents(events))

	// dragging onto another key leaves the previous one
	b.press("d4")
	assert.Equal(t, []piano.Event{
		piano.EndEvent(piano.PointerOrTouch, "c4"),
		piano.StartEvent(piano.PointerOrTouch, "d4"),
	}, drainEvents(events))

	b.release()
	b.release()
	assert.Equal(t, []piano.Event{piano.EndEvent(piano.PointerOrTouch, "d4")}, drainEvents(events))
}

func TestBoardDetach(t *testing.T) {
	events := make(chan piano.Event, 16)
	b := NewBoard(testNotes, input.Keymap{}, events)

	b.press("e4")
	b.Detach()
	b.press("f4")
	b.release()

	assert.Equal(t, []piano.Event{
		piano.StartEvent(piano.PointerOrTouch, "e4"),
		piano.EndEvent(piano.PointerOrTouch, "e4"),
	}, drainEvents(events))
}

func TestBoardIndicator(t *testing.T) {
	b := NewBoard(note.NewSet("c4", "c#4"), input.Keymap{}, nil)

	bg, _ := b.keyColors("c4")
	assert.Equal(t, gocui.ColorWhite, bg)
	bg, _ = b.keyColors("c#4")
	assert.Equal(t, gocui.ColorBlack, bg)

	b.SetHighlighted("c4", true)
	bg, _ = b.keyColors("c4")
	assert.Equal(t, gocui.ColorYellow, bg)

	// pressed wins over highlighted
	b.SetPressed("c4", true)
	bg, _ = b.keyColors("c4")
	assert.Equal(t, gocui.ColorGreen, bg)

	b.SetPressed("c4", false)
	b.SetHighlighted("c4", false)
	bg, _ = b.keyColors("c4")
	assert.Equal(t, gocui.ColorWhite, bg)
}
