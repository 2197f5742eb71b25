package melody

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"gopkg.in/yaml.v3"
)

var log = logger.GetLogger()

// Rest is a pause in a melody, it is skipped automatically.
const Rest = note.Note("")

type Melody struct {
	ID    string
	Name  string
	Notes []note.Note
}

// Playable returns count of non-rest notes.
func (m Melody) Playable() int {
	var count int
	for _, n := range m.Notes {
		if n != Rest {
			count++
		}
	}
	return count
}

// Library is an ordered collection of melodies.
type Library []Melody

func (l Library) Find(id string) (Melody, bool) {
	for _, m := range l {
		if m.ID == id {
			return m, true
		}
	}
	return Melody{}, false
}

func (l Library) IDs() []string {
	var ids = make([]string, 0, len(l))
	for _, m := range l {
		ids = append(ids, m.ID)
	}
	return ids
}

// Within drops melodies asking for notes outside of given set.
func (l Library) Within(notes note.Set) Library {
	var out = make(Library, 0, len(l))
	for _, m := range l {
		playable := true
		for _, n := range m.Notes {
			if n != Rest && !notes.Contains(n) {
				playable = false
				break
			}
		}
		if playable {
			out = append(out, m)
		}
	}
	return out
}

type YamlMelody struct {
	ID    string    `yaml:"id"`
	Name  string    `yaml:"name"`
	Notes []*string `yaml:"notes"` // null stands for a rest
}

type YamlLibrary struct {
	Melodies []YamlMelody `yaml:"melodies"`
}

// Parse decodes melody YAML document, every note has to be one of given notes.
func Parse(data []byte, notes note.Set) (Library, error) {
	var raw YamlLibrary
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing yaml failed: %w", err)
	}

	var library = make(Library, 0, len(raw.Melodies))
	var seen = make(map[string]bool)

	for i, rm := range raw.Melodies {
		if rm.ID == "" {
			return nil, fmt.Errorf("melody #%d: missing id", i+1)
		}
		if seen[rm.ID] {
			return nil, fmt.Errorf("melody \"%s\": duplicated id", rm.ID)
		}
		seen[rm.ID] = true

		m := Melody{ID: rm.ID, Name: rm.Name}
		if m.Name == "" {
			m.Name = rm.ID
		}

		for j, raw := range rm.Notes {
			if raw == nil || strings.TrimSpace(*raw) == "" {
				m.Notes = append(m.Notes, Rest)
				continue
			}
			n := note.Note(strings.ToLower(strings.TrimSpace(*raw)))
			if !notes.Contains(n) {
				return nil, fmt.Errorf("melody \"%s\", note #%d: \"%s\" is not one of configured notes", rm.ID, j+1, *raw)
			}
			m.Notes = append(m.Notes, n)
		}

		library = append(library, m)
	}

	return library, nil
}

// Load reads melody file, a missing file results in an empty library.
func Load(path string, notes note.Set) (Library, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Library{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading melody file failed: %w", err)
	}
	return Parse(data, notes)
}

func melodyOf(id, name string, notes ...string) Melody {
	m := Melody{ID: id, Name: name}
	for _, n := range notes {
		m.Notes = append(m.Notes, note.Note(n))
	}
	return m
}

// Defaults returns built-in melodies, "" stands for a rest.
func Defaults() Library {
	return Library{
		melodyOf("happy_birthday", "Happy Birthday",
			"c4", "c4", "d4", "c4", "f4", "e4", "",
			"c4", "c4", "d4", "c4", "g4", "f4", "",
			"c4", "c4", "c5", "a4", "f4", "e4", "d4", "",
			"b4", "b4", "a4", "f4", "g4", "f4", "",
		),
		melodyOf("jingle_bells", "Jingle Bells",
			"e4", "e4", "e4", "", "e4", "e4", "e4", "",
			"e4", "g4", "c4", "d4", "e4", "", "",
			"f4", "f4", "f4", "f4", "f4", "e4", "e4", "e4",
			"e4", "d4", "d4", "e4", "d4", "", "g4", "",
			"e4", "e4", "e4", "", "e4", "e4", "e4", "",
			"e4", "g4", "c4", "d4", "e4", "", "",
			"f4", "f4", "f4", "f4", "f4", "e4", "e4", "e4",
			"g4", "g4", "f4", "d4", "c4", "", "",
		),
	}
}
