package note

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported note format")

// Note is an opaque key identifier shared by every input source and the device protocol, e.g. "c4".
type Note string

var stringToNoteRegex = regexp.MustCompile(`^(?P<pitch>[a-gA-G])(?P<accidental>#|s)?(?P<octave>-?\d)$`)

var pitchToVal = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

var valToPitch = map[int]string{
	0: "C", 1: "C#", 2: "D", 3: "D#",
	4: "E", 5: "F", 6: "F#", 7: "G",
	8: "G#", 9: "A", 10: "A#", 11: "B",
}

// MIDI resolves the note into a MIDI note number, c4 being 60.
func (n Note) MIDI() (uint8, error) {
	match := stringToNoteRegex.FindStringSubmatch(string(n))
	if len(match) == 0 {
		return 0, fmt.Errorf("%w: \"%s\"", ErrUnsupportedFormat, n)
	}

	pitch := pitchToVal[strings.ToUpper(match[1])]
	if match[2] != "" {
		pitch++
	}
	octave, err := strconv.Atoi(match[3])
	if err != nil {
		return 0, fmt.Errorf("parsing octave failed: %w", err)
	}

	calculated := (octave+1)*12 + pitch
	if calculated < 0 || calculated > 127 {
		return 0, fmt.Errorf("note outside of midi range 0-127: %d", calculated)
	}
	return uint8(calculated), nil
}

// Frequency returns the equal temperament frequency in Hz (a4 = 440Hz).
func (n Note) Frequency() (float64, error) {
	m, err := n.MIDI()
	if err != nil {
		return 0, err
	}
	return 440 * math.Pow(2, (float64(m)-69)/12), nil
}

// Black tells if the note sits on a black piano key.
func (n Note) Black() bool {
	m, err := n.MIDI()
	if err != nil {
		return false
	}
	switch m % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// Pretty returns a human readable name like "C#4".
func (n Note) Pretty() string {
	m, err := n.MIDI()
	if err != nil {
		return strings.ToUpper(string(n))
	}
	return fmt.Sprintf("%s%d", valToPitch[int(m%12)], int(m/12)-1)
}

// Set is a collection of bound notes, kept in the configured order.
type Set struct {
	order []Note
	index map[Note]int
}

func NewSet(notes ...Note) Set {
	s := Set{index: make(map[Note]int, len(notes))}
	for _, n := range notes {
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = len(s.order)
		s.order = append(s.order, n)
	}
	return s
}

// ParseSet parses a comma-separated list, e.g. "c4,d4,e4".
func ParseSet(list string) (Set, error) {
	var notes []Note
	for _, raw := range strings.Split(list, ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		notes = append(notes, Note(raw))
	}
	if len(notes) == 0 {
		return Set{}, errors.New("empty note list")
	}
	return NewSet(notes...), nil
}

func (s Set) Contains(n Note) bool {
	_, ok := s.index[n]
	return ok
}

// Index returns the position of the note in the configured order, -1 if not bound.
func (s Set) Index(n Note) int {
	i, ok := s.index[n]
	if !ok {
		return -1
	}
	return i
}

func (s Set) Notes() []Note {
	return append([]Note(nil), s.order...)
}

func (s Set) Len() int {
	return len(s.order)
}

// ByMIDI finds the configured note resolving to given MIDI note number.
func (s Set) ByMIDI(m uint8) (Note, bool) {
	for _, n := range s.order {
		v, err := n.MIDI()
		if err == nil && v == m {
			return n, true
		}
	}
	return "", false
}
