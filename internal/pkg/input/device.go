package input

import (
	"context"
	"fmt"
	"strings"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	keyUp     = 0
	keyDown   = 1
	keyRepeat = 2
)

// Reader translates key events of a single keyboard handler into PhysicalKeyboard channel events.
type Reader struct {
	handler Handler
	keymap  Keymap
	grab    bool
	noLogs  bool

	held map[evdev.EvCode]note.Note
}

func NewReader(handler Handler, keymap Keymap, grab, noLogs bool) *Reader {
	return &Reader{
		handler: handler,
		keymap:  keymap,
		grab:    grab,
		noLogs:  noLogs,
		held:    make(map[evdev.EvCode]note.Note),
	}
}

func (r *Reader) logFields(fields ...zap.Field) []zap.Field {
	return append(fields, zap.String("handler_event", r.handler.Event()), zap.String("handler_name", r.handler.Name))
}

func (r *Reader) handle(ev evdev.InputEvent, events chan<- piano.Event) {
	if ev.Type != evdev.EV_KEY || ev.Value == keyRepeat {
		return
	}

	n, ok := r.keymap[ev.Code]
	if !ok {
		if ev.Value == keyDown && !r.noLogs {
			log.Info(fmt.Sprintf("key %s not assigned", KeyName(ev.Code)), r.logFields(logger.KeysNotAssigned)...)
		}
		return
	}

	switch ev.Value {
	case keyDown:
		r.held[ev.Code] = n
		events <- piano.StartEvent(piano.PhysicalKeyboard, n)
	case keyUp:
		if _, ok := r.held[ev.Code]; !ok {
			return
		}
		delete(r.held, ev.Code)
		events <- piano.EndEvent(piano.PhysicalKeyboard, n)
	}
}

// release ends every note still held by this handler, used when device disappears.
func (r *Reader) release(events chan<- piano.Event) {
	for code, n := range r.held {
		events <- piano.EndEvent(piano.PhysicalKeyboard, n)
		delete(r.held, code)
	}
}

// Run reads events until ctx is done or the device is gone.
func (r *Reader) Run(ctx context.Context, events chan<- piano.Event) error {
	dev, err := evdev.Open(r.handler.EventPath())
	if err != nil {
		return fmt.Errorf("opening handler failed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = dev.Close()
	}()

	name, _ := dev.Name()
	name = strings.Trim(name, "\x00")

	if r.grab {
		err = dev.Grab()
		if err != nil {
			log.Info(fmt.Sprintf("grabbing device failed: %v", err), r.logFields(logger.Warning)...)
		} else {
			log.Info("Grabbing device for exclusive usage", r.logFields(logger.Debug)...)
		}
	}
	log.Info(fmt.Sprintf("Reading key events of \"%s\"", name), r.logFields(logger.Info)...)

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			break
		}
		r.handle(*ev, events)
	}

	r.release(events)
	log.Info("Reading key events finished", r.logFields(logger.Debug)...)
	return nil
}
