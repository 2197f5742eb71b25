package sound

import (
	"fmt"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
)

var log = logger.GetLogger()

const (
	BackendSynth = "synth"
	BackendMIDI  = "midi"
	BackendNone  = "none"
)

type Config struct {
	Backend string

	// synth
	Decay  time.Duration
	Volume float64 // 0.0 - 1.0

	// midi
	Port     string // output port name, virtual port gets created when empty
	Channel  uint8
	Velocity uint8
}

// Output plays notes and releases its resources on Close.
type Output interface {
	Play(n note.Note) error
	Close() error
}

// Silent accepts every note and plays nothing.
type Silent struct{}

func (Silent) Play(note.Note) error { return nil }
func (Silent) Close() error         { return nil }

// Open creates an output for configured backend, every given note gets prepared upfront.
func Open(cfg Config, notes note.Set) (Output, error) {
	switch cfg.Backend {
	case BackendSynth:
		return NewSynth(cfg, notes)
	case BackendMIDI:
		return OpenMIDI(cfg)
	case BackendNone, "":
		return Silent{}, nil
	default:
		return nil, fmt.Errorf("unsupported sound backend \"%s\"", cfg.Backend)
	}
}
