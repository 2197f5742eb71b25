package piano

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Emitter starts the sound of a note from the beginning, it never stops a sound early.
type Emitter interface {
	Play(n note.Note) error
}

// Indicator is a visual surface able to mark keys as pressed or highlighted.
type Indicator interface {
	SetPressed(n note.Note, pressed bool)
	SetHighlighted(n note.Note, highlighted bool)
}

// Indicators fans out every call to all underlying indicators.
type Indicators []Indicator

func (is Indicators) SetPressed(n note.Note, pressed bool) {
	for _, i := range is {
		i.SetPressed(n, pressed)
	}
}

func (is Indicators) SetHighlighted(n note.Note, highlighted bool) {
	for _, i := range is {
		i.SetHighlighted(n, highlighted)
	}
}

// Reconciler keeps track of which input channels hold which note and drives the emitter and the indicator
// accordingly. Handlers are not safe for concurrent use, all sources are supposed to deliver through
// ProcessEvents. Snapshot getters (Held, HeldNotes) may be called from any goroutine.
type Reconciler struct {
	noLogs    bool
	notes     note.Set
	emitter   Emitter
	indicator Indicator

	mutex  sync.RWMutex // guards owners for snapshot readers only
	owners map[note.Note]ChannelSet

	pressListeners []func(note.Note, Channel)
}

func NewReconciler(notes note.Set, emitter Emitter, indicator Indicator, noLogs bool) *Reconciler {
	return &Reconciler{
		noLogs:    noLogs,
		notes:     notes,
		emitter:   emitter,
		indicator: indicator,
		owners:    make(map[note.Note]ChannelSet, notes.Len()),
	}
}

// OnPress registers a callback invoked every time a channel newly starts holding a note.
// Callbacks run on the reconciliation goroutine and must not block.
func (r *Reconciler) OnPress(f func(note.Note, Channel)) {
	r.pressListeners = append(r.pressListeners, f)
}

func (r *Reconciler) OnChannelStart(c Channel, n note.Note) {
	if !r.notes.Contains(n) {
		if !r.noLogs {
			log.Info(fmt.Sprintf("start for unbound note \"%s\" ignored", n),
				logger.KeysNotAssigned, zap.String("channel", c.String()))
		}
		return
	}

	r.mutex.Lock()
	held := r.owners[n]
	if held.Has(c) && c == PhysicalKeyboard {
		r.mutex.Unlock()
		return // key repeat
	}
	r.owners[n] = held.With(c)
	r.mutex.Unlock()

	if held.Empty() {
		r.play(n)
	}
	r.indicator.SetPressed(n, true)

	if !r.noLogs {
		log.Info(fmt.Sprintf("%s pressed, holders: %s", n.Pretty(), held.With(c)),
			logger.Keys, zap.String("channel", c.String()))
	}

	if !held.Has(c) {
		for _, f := range r.pressListeners {
			f(n, c)
		}
	}
}

func (r *Reconciler) OnChannelEnd(c Channel, n note.Note) {
	r.mutex.Lock()
	held := r.owners[n]
	if !held.Has(c) {
		r.mutex.Unlock()
		return
	}
	held = held.Without(c)
	if held.Empty() {
		delete(r.owners, n)
	} else {
		r.owners[n] = held
	}
	r.mutex.Unlock()

	// sound keeps playing until its natural end
	if held.Empty() {
		r.indicator.SetPressed(n, false)
	}

	if !r.noLogs {
		log.Info(fmt.Sprintf("%s released, holders: %s", n.Pretty(), held),
			logger.Keys, zap.String("channel", c.String()))
	}
}

// OnDeviceReset forgets every Device hold, holds of other channels stay intact.
func (r *Reconciler) OnDeviceReset() {
	var released []note.Note

	r.mutex.Lock()
	for n, held := range r.owners {
		if !held.Has(Device) {
			continue
		}
		held = held.Without(Device)
		if held.Empty() {
			delete(r.owners, n)
			released = append(released, n)
			continue
		}
		r.owners[n] = held
	}
	r.mutex.Unlock()

	sortNotes(r.notes, released)
	for _, n := range released {
		r.indicator.SetPressed(n, false)
	}

	if !r.noLogs && len(released) > 0 {
		log.Info(fmt.Sprintf("device reset, released %d notes", len(released)), logger.Keys)
	}
}

func (r *Reconciler) play(n note.Note) {
	err := r.emitter.Play(n)
	if err != nil {
		log.Info(fmt.Sprintf("playback of %s failed: %v", n.Pretty(), err), logger.Warning)
	}
}

func (r *Reconciler) Handle(e Event) {
	switch e.Type {
	case Start:
		r.OnChannelStart(e.Channel, e.Note)
	case End:
		r.OnChannelEnd(e.Channel, e.Note)
	case Reset:
		r.OnDeviceReset()
	}
}

// ProcessEvents handles events one by one until the channel gets closed.
func (r *Reconciler) ProcessEvents(events <-chan Event) {
	for e := range events {
		r.Handle(e)
	}
	log.Info("Processing key events stopped", logger.Debug)
}

// Held returns channels currently holding given note.
func (r *Reconciler) Held(n note.Note) ChannelSet {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.owners[n]
}

// HeldNotes returns all held notes in the configured order.
func (r *Reconciler) HeldNotes() []note.Note {
	r.mutex.RLock()
	var notes = make([]note.Note, 0, len(r.owners))
	for n := range r.owners {
		notes = append(notes, n)
	}
	r.mutex.RUnlock()

	sortNotes(r.notes, notes)
	return notes
}

func (r *Reconciler) Notes() note.Set {
	return r.notes
}

func sortNotes(set note.Set, notes []note.Note) {
	sort.Slice(notes, func(i, j int) bool {
		return set.Index(notes[i]) < set.Index(notes[j])
	})
}
