package link

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gethiox/espiano/internal/pkg/note"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEdge    = errors.New("unknown edge")
	ErrUnknownNote    = errors.New("unknown note")
)

type Edge string

const (
	On  Edge = "on"
	Off Edge = "off"
)

// Frame is a single device event, transmitted as "<note>_<edge>", e.g. "c4_on".
type Frame struct {
	Note note.Note
	Edge Edge
}

func (f Frame) String() string {
	return fmt.Sprintf("%s_%s", f.Note, f.Edge)
}

// ParseFrame decodes a text frame, notes outside of the known set are rejected.
func ParseFrame(data []byte, known note.Set) (Frame, error) {
	raw := strings.TrimSpace(string(data))
	noteRaw, edgeRaw, ok := strings.Cut(raw, "_")
	if !ok || noteRaw == "" {
		return Frame{}, fmt.Errorf("%w: \"%s\"", ErrMalformedFrame, raw)
	}

	var edge Edge
	switch Edge(edgeRaw) {
	case On, Off:
		edge = Edge(edgeRaw)
	default:
		return Frame{}, fmt.Errorf("%w: \"%s\"", ErrUnknownEdge, edgeRaw)
	}

	n := note.Note(noteRaw)
	if !known.Contains(n) {
		return Frame{}, fmt.Errorf("%w: \"%s\"", ErrUnknownNote, noteRaw)
	}

	return Frame{Note: n, Edge: edge}, nil
}
