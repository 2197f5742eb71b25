package note

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMIDI(t *testing.T) {
	for _, tc := range []struct {
		note     Note
		expected uint8
	}{
		{note: "c4", expected: 60},
		{note: "C4", expected: 60},
		{note: "cs4", expected: 61},
		{note: "c#4", expected: 61},
		{note: "a4", expected: 69},
		{note: "b4", expected: 71},
		{note: "c5", expected: 72},
		{note: "c-1", expected: 0},
		{note: "g9", expected: 127},
	} {
		t.Run(string(tc.note), func(t *testing.T) {
			m, err := tc.note.MIDI()
			assert.Equal(t, nil, err)
			assert.Equal(t, tc.expected, m)
		})
	}
}

func TestMIDIErrors(t *testing.T) {
	for i, n := range []Note{"", "x9", "c", "h4", "c44", "c4_on"} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			_, err := n.MIDI()
			assert.True(t, errors.Is(err, ErrUnsupportedFormat))
		})
	}

	_, err := Note("a9").MIDI()
	assert.NotEqual(t, nil, err)
}

func TestFrequency(t *testing.T) {
	f, err := Note("a4").Frequency()
	assert.Equal(t, nil, err)
	assert.InDelta(t, 440.0, f, 0.0001)

	f, err = Note("c4").Frequency()
	assert.Equal(t, nil, err)
	assert.InDelta(t, 261.6256, f, 0.001)
}

func TestBlackAndPretty(t *testing.T) {
	assert.False(t, Note("c4").Black())
	assert.True(t, Note("cs4").Black())
	assert.False(t, Note("bogus").Black())

	assert.Equal(t, "C#4", Note("cs4").Pretty())
	assert.Equal(t, "C5", Note("c5").Pretty())
	assert.Equal(t, "BOGUS", Note("bogus").Pretty())
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet(" c4, D4,e4,,c4 ")
	assert.Equal(t, nil, err)
	assert.Equal(t, []Note{"c4", "d4", "e4"}, s.Notes())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("d4"))
	assert.False(t, s.Contains("f4"))
	assert.Equal(t, 2, s.Index("e4"))
	assert.Equal(t, -1, s.Index("f4"))

	_, err = ParseSet(" , ")
	assert.NotEqual(t, nil, err)
}

func TestSetByMIDI(t *testing.T) {
	s := NewSet("c4", "cs4", "e4", "c5")

	n, ok := s.ByMIDI(61)
	assert.True(t, ok)
	assert.Equal(t, Note("cs4"), n)

	n, ok = s.ByMIDI(72)
	assert.True(t, ok)
	assert.Equal(t, Note("c5"), n)

	_, ok = s.ByMIDI(62)
	assert.False(t, ok)
}
