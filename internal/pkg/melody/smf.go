package melody

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	mmidi "github.com/moutend/go-midi"
	mmidiev "github.com/moutend/go-midi/event"
)

// ParseSMF imports note-on events of a Standard MIDI File as a melody. A gap longer than a quarter note
// between two notes becomes a rest, notes outside of given set are reported as an error.
func ParseSMF(id string, data []byte, notes note.Set) (Melody, error) {
	parser := mmidi.NewParser(data)
	smf, err := parser.Parse()
	if err != nil {
		return Melody{}, fmt.Errorf("parsing midi file failed: %w", err)
	}

	quarter := ticksPerQuarter(data)

	m := Melody{ID: id, Name: id}

	for _, track := range smf.Tracks {
		var idle uint32
		for _, event := range track.Events {
			idle += event.DeltaTime().Quantity().Uint32()

			v, ok := event.(*mmidiev.NoteOnEvent)
			if !ok {
				continue
			}
			raw := v.Serialize()
			if len(raw) > 0 && raw[len(raw)-1] == 0 { // velocity 0 stands for note off
				continue
			}

			n, ok := notes.ByMIDI(uint8(v.Note()))
			if !ok {
				return Melody{}, fmt.Errorf("midi note %d is not one of configured notes", uint8(v.Note()))
			}
			if len(m.Notes) > 0 && idle > quarter {
				m.Notes = append(m.Notes, Rest)
			}
			m.Notes = append(m.Notes, n)
			idle = 0
		}
		if len(m.Notes) > 0 {
			break // first track carrying notes only
		}
	}

	if len(m.Notes) == 0 {
		return Melody{}, fmt.Errorf("no notes found")
	}
	return m, nil
}

// LoadSMFDir imports every *.mid file of given directory, broken files are skipped.
func LoadSMFDir(dir string, notes note.Set) Library {
	paths, err := filepath.Glob(filepath.Join(dir, "*.mid"))
	if err != nil {
		return nil
	}
	sort.Strings(paths)

	var library Library
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Info(fmt.Sprintf("reading midi file failed: %v", err), logger.Warning)
			continue
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m, err := ParseSMF(id, data, notes)
		if err != nil {
			log.Info(fmt.Sprintf("midi file \"%s\" skipped: %v", filepath.Base(path), err), logger.Warning)
			continue
		}
		library = append(library, m)
	}
	return library
}

// ticksPerQuarter reads division field of the header chunk, SMPTE based timing falls back to 480.
func ticksPerQuarter(data []byte) uint32 {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return 480
	}
	division := binary.BigEndian.Uint16(data[12:14])
	if division == 0 || division&0x8000 != 0 {
		return 480
	}
	return uint32(division)
}
