package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gethiox/espiano/internal/pkg/display"
	"github.com/gethiox/espiano/internal/pkg/link"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

var heart = '❤'

func shortStatus(s link.Status) string {
	switch s.Kind {
	case link.StatusConnected:
		return "device: online"
	case link.StatusConnecting:
		return "device: connecting"
	case link.StatusError:
		return "device: error"
	default:
		if s.Retry > 0 {
			return fmt.Sprintf("device: retry %s", s.Retry)
		}
		return "device: offline"
	}
}

// wrap splits text into lines of given width, breaking on spaces where possible.
func wrap(s string, width, lines int) []string {
	var out []string
	var current string
	for _, word := range strings.Fields(s) {
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			out = append(out, current)
			current = word
		}
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) > lines {
		out = out[:lines]
	}
	return out
}

// displayLines renders the key row, the connection status and the last sequencer message.
func displayLines(cfg display.ScreenConfig, s overviewSnapshot, notes note.Set, r *piano.Reconciler) [4]string {
	var buffer [4]string
	width := cfg.Width()

	held := func(n note.Note) bool {
		return !r.Held(n).Empty()
	}
	buffer[0] = display.Fit(display.KeyRow(notes.Notes(), held, s.highlighted), width)
	buffer[1] = display.Fit(shortStatus(s.status), width)

	if cfg.Height() > 2 {
		for i, line := range wrap(s.message, width, 2) {
			buffer[2+i] = line
		}
	}
	return buffer
}

func exitLines(cfg display.ScreenConfig, score int) [4]string {
	var buffer [4]string
	if cfg.HaveExitMessage() {
		for i, msg := range cfg.ExitMessage {
			buffer[i] = display.Fit(msg, cfg.Width())
		}
		return buffer
	}

	width := cfg.Width()
	center := func(msg string) string {
		return fmt.Sprintf("%*s", -width, fmt.Sprintf("%*s", (width+len([]rune(msg)))/2, msg))
	}

	buffer[0] = center("thanks for playing")
	buffer[1] = center(fmt.Sprintf("with ESPiano %s", string(heart)))
	buffer[2] = center(fmt.Sprintf("(score: %d)", score))
	if cfg.Height() == 2 {
		buffer[1] = buffer[2]
	}
	return buffer
}

func GenerateDisplayData(
	ctx context.Context, wg *sync.WaitGroup, cfg display.ScreenConfig,
	ov *Overview, r *piano.Reconciler, score func() int,
) <-chan display.DisplayData {
	data := make(chan display.DisplayData)

	rate := time.Second
	if cfg.UpdateRate > 0 {
		rate = time.Second / time.Duration(cfg.UpdateRate)
	}

	go func() {
		defer wg.Done()
		defer close(data)

	root:
		for {
			data <- display.DisplayData{
				Lines:   displayLines(cfg, ov.snapshot(), r.Notes(), r),
				LastMsg: false,
			}

			select {
			case <-ctx.Done():
				break root
			case <-time.After(rate):
			}
		}

		data <- display.DisplayData{
			Lines:   exitLines(cfg, score()),
			LastMsg: true,
		}
	}()

	return data
}
