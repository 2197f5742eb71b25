package sound

import (
	"fmt"
	"sync"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const virtualPortName = "espiano"

// Port is the part of a MIDI output the emitter needs.
type Port interface {
	Send(data []byte) error
	Close() error
	String() string
}

// MIDI sends notes to an external synthesizer. Every note is released after decay time,
// playing an already sounding note restarts it with a Note Off / Note On pair.
type MIDI struct {
	port     Port
	channel  uint8
	velocity uint8
	decay    time.Duration

	afterFunc func(time.Duration, func()) *time.Timer

	mutex    sync.Mutex
	releases map[uint8]*time.Timer
}

func NewMIDI(port Port, cfg Config) *MIDI {
	velocity := cfg.Velocity
	if velocity == 0 || velocity > 127 {
		velocity = 100
	}
	decay := cfg.Decay
	if decay <= 0 {
		decay = time.Second * 2
	}

	return &MIDI{
		port:      port,
		channel:   cfg.Channel & 0b1111,
		velocity:  velocity,
		decay:     decay,
		afterFunc: time.AfterFunc,
		releases:  make(map[uint8]*time.Timer),
	}
}

// OpenMIDI opens named output port, or creates a virtual one when no name is configured.
func OpenMIDI(cfg Config) (*MIDI, error) {
	var out drivers.Out
	var err error

	if cfg.Port == "" {
		drv, err := rtmididrv.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize midi driver: %w", err)
		}
		out, err = drv.OpenVirtualOut(virtualPortName)
		if err != nil {
			return nil, fmt.Errorf("failed to open virtual output: %w", err)
		}
	} else {
		out, err = gomidi.FindOutPort(cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("midi output \"%s\" not found: %w", cfg.Port, err)
		}
		err = out.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open output: %w", err)
		}
	}

	log.Info(fmt.Sprintf("MIDI output: %s", out.String()), logger.Info)
	return NewMIDI(out, cfg), nil
}

func (m *MIDI) send(msg gomidi.Message) error {
	err := m.port.Send(msg.Bytes())
	if err != nil {
		return fmt.Errorf("failed to send \"%s\": %w", msg.String(), err)
	}
	return nil
}

func (m *MIDI) Play(n note.Note) error {
	key, err := n.MIDI()
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if t, ok := m.releases[key]; ok {
		t.Stop()
		delete(m.releases, key)
		err = m.send(gomidi.NoteOff(m.channel, key))
		if err != nil {
			return err
		}
	}

	err = m.send(gomidi.NoteOn(m.channel, key, m.velocity))
	if err != nil {
		return err
	}

	var timer *time.Timer
	timer = m.afterFunc(m.decay, func() {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		if m.releases[key] != timer {
			return
		}
		delete(m.releases, key)
		err := m.send(gomidi.NoteOff(m.channel, key))
		if err != nil {
			log.Info(err.Error(), logger.Warning)
		}
	})
	m.releases[key] = timer
	return nil
}

// Close releases all sounding notes and closes the port.
func (m *MIDI) Close() error {
	m.mutex.Lock()
	for key, t := range m.releases {
		t.Stop()
		_ = m.send(gomidi.NoteOff(m.channel, key))
		delete(m.releases, key)
	}
	m.mutex.Unlock()

	return m.port.Close()
}
