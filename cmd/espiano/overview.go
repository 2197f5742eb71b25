package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/espiano/internal/pkg/display"
	"github.com/gethiox/espiano/internal/pkg/link"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/logrusorgru/aurora"
)

// Overview collects everything worth showing besides the keys themselves: connection status, sequencer
// messages and highlighted note. It is fed by the connection manager, the sequencers and the reconciler.
type Overview struct {
	mode string

	mutex       sync.Mutex
	status      link.Status
	message     string
	highlighted note.Note
	progress    func() string
}

func NewOverview(mode string) *Overview {
	return &Overview{mode: mode, status: link.Status{Kind: link.StatusDisconnected}}
}

func (o *Overview) SetStatus(s link.Status) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.status = s
}

func (o *Overview) SetMessage(msg string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.message = msg
}

// SetProgress registers a callback describing sequencer progress, e.g. game score.
func (o *Overview) SetProgress(f func() string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.progress = f
}

func (o *Overview) SetPressed(note.Note, bool) {}

func (o *Overview) SetHighlighted(n note.Note, highlighted bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if highlighted {
		o.highlighted = n
	} else if o.highlighted == n {
		o.highlighted = ""
	}
}

type overviewSnapshot struct {
	mode        string
	status      link.Status
	message     string
	highlighted note.Note
	progress    string
}

func (o *Overview) snapshot() overviewSnapshot {
	o.mutex.Lock()
	progress := o.progress
	s := overviewSnapshot{
		mode:        o.mode,
		status:      o.status,
		message:     o.message,
		highlighted: o.highlighted,
	}
	o.mutex.Unlock()

	if progress != nil {
		s.progress = progress()
	}
	return s
}

func statusColor(au aurora.Aurora, s link.Status) aurora.Value {
	switch s.Kind {
	case link.StatusConnected:
		return au.Index(16+36*1+6*5+1, s.String())
	case link.StatusConnecting:
		return au.Index(16+36*5+6*5+1, s.String())
	default:
		return au.Index(16+36*5+6*1+1, s.String())
	}
}

func heldDescription(r *piano.Reconciler) string {
	var held []string
	for _, n := range r.HeldNotes() {
		held = append(held, fmt.Sprintf("%s %s", n.Pretty(), r.Held(n)))
	}
	if len(held) == 0 {
		return "-"
	}
	return strings.Join(held, ", ")
}

func statusLines(au aurora.Aurora, s overviewSnapshot, r *piano.Reconciler) []string {
	lines := []string{
		fmt.Sprintf("device: %s, %s", colorForString(au, s.status.Endpoint).String(), statusColor(au, s.status).String()),
		fmt.Sprintf("mode: %s", colorForString(au, s.mode).String()),
		fmt.Sprintf("held: %s", heldDescription(r)),
	}
	if s.progress != "" {
		lines[1] += ", " + s.progress
	}
	if s.message != "" {
		lines = append(lines, au.Bold(s.message).String())
	}
	return lines
}

func statusView(g *gocui.Gui, colors bool, ov *Overview, r *piano.Reconciler, rate time.Duration) {
	au := aurora.NewAurora(colors)

	for {
		lines := statusLines(au, ov.snapshot(), r)

		g.Update(func(g *gocui.Gui) error {
			view, err := g.View(ViewStatus)
			if err != nil {
				return nil
			}
			x, y := view.Size()
			view.Rewind()
			for i := 0; i < y; i++ {
				var line string
				if i < len(lines) {
					line = lines[i]
				}
				free := x - rawStringLen(line)
				if free < 0 {
					free = 0
				}
				view.Write([]byte(line + strings.Repeat(" ", free)))
				view.Write([]byte{'\n'})
			}
			return nil
		})
		time.Sleep(rate)
	}
}

func logView(g *gocui.Gui, color bool, logLevel, bufSize int) {
	feeder, err := NewFeeder(g, ViewLogs, logLevel, aurora.NewAurora(color))
	if err != nil {
		panic(err)
	}

	buf := newLogBuffer(bufSize)

	var newMessage = make(chan bool, 1)

	go func() {
		for msg := range logger.Messages {
			buf.WriteMessage(msg)
			select {
			case newMessage <- true:
			default:
			}
		}
		close(newMessage)
	}()

	var lastX, lastY int
	ticker := time.NewTicker(time.Millisecond * 100)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-newMessage:
			if !ok {
				return
			}
		case <-ticker.C:
			x, y := feeder.view.Size()
			if x == lastX && y == lastY {
				continue
			}
			lastX, lastY = x, y
		}

		g.Update(func(g *gocui.Gui) error {
			feeder.view.Clear()
			_, y := feeder.view.Size()
			for _, msg := range buf.ReadLastMessages(y) {
				feeder.Write(msg)
			}
			return nil
		})
	}
}

func lcdView(g *gocui.Gui, dd <-chan display.DisplayData) {
	for data := range dd {
		lines := data.Lines
		g.Update(func(g *gocui.Gui) error {
			view, err := g.View(ViewLCD)
			if err != nil {
				return nil
			}
			view.Rewind()
			for _, s := range lines {
				view.Write([]byte(display.Fit(s, lcdWidth-2)))
				view.Write([]byte{'\n'})
			}
			return nil
		})
	}
}
