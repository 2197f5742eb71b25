package sound

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
)

const (
	sampleRate    = 44100
	channelCount  = 2
	bytesPerFrame = channelCount * 2 // signed 16-bit LE
)

// harmonic weights of generated tone
var partials = []float64{1.0, 0.45, 0.2, 0.1}

// Tone renders a decaying note of given frequency as interleaved stereo signed 16-bit little endian PCM.
func Tone(freq float64, decay time.Duration, volume float64) []byte {
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	frames := int(decay.Seconds() * sampleRate)
	buf := bytes.NewBuffer(make([]byte, 0, frames*bytesPerFrame))

	var norm float64
	for _, p := range partials {
		norm += p
	}

	// amplitude drops to ~0.1% at the end of decay time
	tau := decay.Seconds() / 7
	attack := sampleRate / 200

	for i := 0; i < frames; i++ {
		t := float64(i) / sampleRate

		var v float64
		for h, p := range partials {
			v += p * math.Sin(2*math.Pi*freq*float64(h+1)*t)
		}
		env := math.Exp(-t / tau)
		if i < attack {
			env *= float64(i) / float64(attack)
		}

		sample := int16(v / norm * env * volume * math.MaxInt16)
		for c := 0; c < channelCount; c++ {
			_ = binary.Write(buf, binary.LittleEndian, sample)
		}
	}
	return buf.Bytes()
}

// Synth plays pre-rendered tones through the system audio device, one player per note.
type Synth struct {
	ctx     *oto.Context
	mutex   sync.Mutex
	players map[note.Note]*oto.Player
}

func NewSynth(cfg Config, notes note.Set) (*Synth, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	<-ready

	decay := cfg.Decay
	if decay <= 0 {
		decay = time.Second * 2
	}
	volume := cfg.Volume
	if volume <= 0 {
		volume = 0.8
	}

	tones := renderTones(notes, decay, volume)
	s := &Synth{
		ctx:     ctx,
		players: make(map[note.Note]*oto.Player, len(tones)),
	}
	for n, data := range tones {
		s.players[n] = ctx.NewPlayer(bytes.NewReader(data))
	}

	log.Info(fmt.Sprintf("Synth ready, %d/%d notes rendered (decay: %s)", len(tones), notes.Len(), decay), logger.Debug)
	return s, nil
}

// renderTones renders every note of the set that resolves to a frequency, other notes stay silent.
func renderTones(notes note.Set, decay time.Duration, volume float64) map[note.Note][]byte {
	tones := make(map[note.Note][]byte, notes.Len())
	for _, n := range notes.Notes() {
		freq, err := n.Frequency()
		if err != nil {
			log.Info(fmt.Sprintf("note \"%s\" has no tone: %v", n, err), logger.Warning)
			continue
		}
		tones[n] = Tone(freq, decay, volume)
	}
	return tones
}

// Play starts the note from the beginning, a note still sounding gets restarted.
func (s *Synth) Play(n note.Note) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, ok := s.players[n]
	if !ok {
		return fmt.Errorf("no tone for note \"%s\"", n)
	}

	if p.IsPlaying() {
		p.Pause()
	}
	_, err := p.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to rewind note \"%s\": %w", n, err)
	}
	p.Play()
	return nil
}

func (s *Synth) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var firstErr error
	for n, p := range s.players {
		err := p.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.players, n)
	}
	return firstErr
}
