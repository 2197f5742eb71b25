package sound

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/stretchr/testify/assert"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestMain(m *testing.M) {
	stop := make(chan struct{})
	logger.Drain(stop)
	code := m.Run()
	close(stop)
	os.Exit(code)
}

func peak(data []byte, from, to int) int {
	var p int
	for i := from * bytesPerFrame; i < to*bytesPerFrame && i+1 < len(data); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(data[i:])))
		if v < 0 {
			v = -v
		}
		if v > p {
			p = v
		}
	}
	return p
}

func TestTone(t *testing.T) {
	data := Tone(440, time.Second, 1.0)
	assert.Equal(t, sampleRate*bytesPerFrame, len(data))

	// both channels carry the same sample
	for i := 0; i < 1000; i += bytesPerFrame {
		assert.Equal(t, data[i:i+2], data[i+2:i+4])
	}

	// starts silent, decays over time
	assert.Equal(t, 0, peak(data, 0, 1))
	early := peak(data, 1000, 5000)
	late := peak(data, sampleRate-4000, sampleRate)
	assert.Greater(t, early, math.MaxInt16/4)
	assert.Less(t, late, early/100)
}

func TestToneVolume(t *testing.T) {
	loud := peak(Tone(440, time.Second, 1.0), 0, sampleRate)
	quiet := peak(Tone(440, time.Second, 0.25), 0, sampleRate)
	assert.InDelta(t, float64(loud)/4, float64(quiet), float64(loud)/50)

	assert.Equal(t, 0, peak(Tone(440, time.Second, -1), 0, sampleRate))
}

type fakePort struct {
	mutex   sync.Mutex
	sent    []string
	closed  bool
	sendErr error
}

func (p *fakePort) Send(data []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, gomidi.Message(data).String())
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) String() string { return "fake" }

func (p *fakePort) messages() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.sent...)
}

func noteOn(key uint8) string  { return gomidi.NoteOn(1, key, 90).String() }
func noteOff(key uint8) string { return gomidi.NoteOff(1, key).String() }

func newTestMIDI() (*MIDI, *fakePort, *[]func()) {
	port := &fakePort{}
	m := NewMIDI(port, Config{Channel: 1, Velocity: 90, Decay: time.Second})

	var pending []func()
	m.afterFunc = func(d time.Duration, f func()) *time.Timer {
		pending = append(pending, f)
		return time.AfterFunc(time.Hour, func() {})
	}
	return m, port, &pending
}

func TestMIDIPlay(t *testing.T) {
	m, port, pending := newTestMIDI()

	assert.NoError(t, m.Play("c4"))
	assert.Equal(t, []string{noteOn(60)}, port.messages())

	// natural end
	(*pending)[0]()
	assert.Equal(t, []string{noteOn(60), noteOff(60)}, port.messages())
}

func TestMIDIRetrigger(t *testing.T) {
	m, port, pending := newTestMIDI()

	assert.NoError(t, m.Play("a4"))
	assert.NoError(t, m.Play("a4"))
	assert.Equal(t, []string{noteOn(69), noteOff(69), noteOn(69)}, port.messages())

	// release scheduled by first play is outdated
	(*pending)[0]()
	assert.Equal(t, 3, len(port.messages()))

	(*pending)[1]()
	assert.Equal(t, []string{noteOn(69), noteOff(69), noteOn(69), noteOff(69)}, port.messages())
}

func TestMIDIClose(t *testing.T) {
	m, port, _ := newTestMIDI()

	assert.NoError(t, m.Play("c4"))
	assert.NoError(t, m.Play("e4"))
	assert.NoError(t, m.Close())

	assert.True(t, port.closed)
	assert.ElementsMatch(t, []string{noteOn(60), noteOn(64), noteOff(60), noteOff(64)}, port.messages())
}

func TestMIDIErrors(t *testing.T) {
	m, port, _ := newTestMIDI()

	assert.Error(t, m.Play("x9"))
	port.sendErr = errors.New("broken pipe")
	assert.Error(t, m.Play("c4"))
}

func TestOpen(t *testing.T) {
	out, err := Open(Config{Backend: BackendNone}, note.NewSet("c4"))
	assert.NoError(t, err)
	assert.Equal(t, Silent{}, out)
	assert.NoError(t, out.Play("c4"))

	_, err = Open(Config{Backend: "theremin"}, note.NewSet("c4"))
	assert.Error(t, err)
}

func TestRenderTonesSkipsUnknownNotes(t *testing.T) {
	notes, err := note.ParseSet("c4,x9,e4")
	assert.NoError(t, err)
	tones := renderTones(notes, time.Millisecond*100, 0.5)

	assert.Len(t, tones, 2)
	assert.Contains(t, tones, note.Note("c4"))
	assert.Contains(t, tones, note.Note("e4"))
	assert.NotContains(t, tones, note.Note("x9"))

	freq, err := note.Note("c4").Frequency()
	assert.NoError(t, err)
	assert.Equal(t, Tone(freq, time.Millisecond*100, 0.5), tones["c4"])
}
