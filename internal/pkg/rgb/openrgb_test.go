package rgb

import (
	"testing"

	"github.com/gethiox/espiano/internal/pkg/input"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/holoplot/go-evdev"
	"github.com/realbucksavage/openrgb-go"
	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	assert.NoError(t, err)
	assert.Equal(t, openrgb.Color{Red: 255, Green: 128, Blue: 0}, c)

	c, err = ParseColor("1b1b1b")
	assert.NoError(t, err)
	assert.Equal(t, openrgb.Color{Red: 27, Green: 27, Blue: 27}, c)

	_, err = ParseColor("nope")
	assert.Error(t, err)
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "Key: A", KeyToLedName[evdev.KEY_A])
	assert.Equal(t, "Key: 7", KeyToLedName[evdev.KEY_7])
	assert.Equal(t, evdev.EvCode(evdev.KEY_SEMICOLON), LedNameToKey["Key: ;"])
}

func TestNoteColors(t *testing.T) {
	colors := noteColors(note.NewSet("c4", "d4", "e4"))
	assert.Equal(t, openrgb.Color{Red: 255}, colors["c4"])
	assert.Equal(t, 3, len(colors))
	assert.NotEqual(t, colors["d4"], colors["e4"])
}

func TestRender(t *testing.T) {
	red := openrgb.Color{Red: 255}
	colors := Colors{
		White:       openrgb.Color{Red: 1},
		Black:       openrgb.Color{Red: 2},
		C:           openrgb.Color{Red: 3},
		Highlighted: openrgb.Color{Red: 4},
		Unavailable: openrgb.Color{Red: 5},
	}
	f := frame{
		leds: 6,
		indexMap: map[evdev.EvCode]int{
			evdev.KEY_A: 0, evdev.KEY_S: 1, evdev.KEY_D: 2, evdev.KEY_F: 3, evdev.KEY_Q: 4,
		},
		keymap: input.Keymap{
			evdev.KEY_A: "c4", evdev.KEY_S: "cs4", evdev.KEY_D: "d4", evdev.KEY_F: "e4",
			evdev.KEY_Z: "f4", // no LED
		},
		colors: colors,
		held:   map[note.Note]openrgb.Color{"e4": red},
	}

	i := NewIndicator()
	i.SetPressed("e4", true)
	i.SetHighlighted("d4", true)

	leds := make([]openrgb.Color, f.leds)
	f.render(i, leds)

	assert.Equal(t, []openrgb.Color{
		colors.C, colors.Black, colors.Highlighted, red, colors.Unavailable, {},
	}, leds)

	i.SetPressed("e4", false)
	f.render(i, leds)
	assert.Equal(t, colors.White, leds[3])
}
