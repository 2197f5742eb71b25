package piano

import (
	"fmt"

	"github.com/gethiox/espiano/internal/pkg/note"
)

type EventType uint8

const (
	Start EventType = iota
	End
	Reset // drops every Device hold, Note and Channel are ignored
)

func (t EventType) String() string {
	switch t {
	case Start:
		return "start"
	case End:
		return "end"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is a single entry of the reconciler's event queue.
type Event struct {
	Type    EventType
	Channel Channel
	Note    note.Note
}

func (e Event) String() string {
	if e.Type == Reset {
		return "device reset"
	}
	return fmt.Sprintf("%s %s (%s)", e.Note.Pretty(), e.Type, e.Channel)
}

func StartEvent(c Channel, n note.Note) Event {
	return Event{Type: Start, Channel: c, Note: n}
}

func EndEvent(c Channel, n note.Note) Event {
	return Event{Type: End, Channel: c, Note: n}
}

func ResetEvent() Event {
	return Event{Type: Reset, Channel: Device}
}
