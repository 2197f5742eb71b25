package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
)

const (
	ViewBoard  = "board"
	ViewStatus = "status"
	ViewLogs   = "logs"
	ViewLCD    = "lcd"
)

const (
	boardHeight  = 8
	statusHeight = 5
	lcdWidth     = 22
)

func GetCli(board *Board) (*gocui.Gui, error) {
	g, err := gocui.NewGui(gocui.Output256, true)
	if err != nil {
		return nil, err
	}

	g.Mouse = true
	g.SetManagerFunc(board.Layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return nil, err
	}
	if err := board.bind(g); err != nil {
		return nil, err
	}

	return g, nil
}

func layoutFrames(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(ViewBoard, 0, 0, maxX-lcdWidth-1, boardHeight, 0); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[Keys]"
		v.Autoscroll = false
		v.Wrap = false
		v.Frame = true
	}

	if v, err := g.SetView(ViewStatus, 0, boardHeight, maxX-1, boardHeight+statusHeight, 0); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[Status]"
		v.Autoscroll = false
		v.Wrap = false
		v.Frame = true
	}

	if v, err := g.SetView(ViewLogs, 0, boardHeight+statusHeight, maxX-1, maxY-1, gocui.TOP); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[Logs]"
		v.Autoscroll = false
		v.Wrap = false
		v.Frame = true
	}

	if v, err := g.SetView(ViewLCD, maxX-lcdWidth, 0, maxX-1, 5, 0); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[lcd]"
		v.Autoscroll = false
		v.Wrap = true
		v.Frame = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

type TimeNanosecond time.Time

func (j *TimeNanosecond) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*j = TimeNanosecond(time.Unix(0, v))
	return nil
}

func (j TimeNanosecond) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(j))
}

type Entry struct {
	Ts     TimeNanosecond `json:"ts"`
	Caller string         `json:"caller"`
	Msg    string         `json:"msg"`
	Level  int            `json:"level"`

	Endpoint     string `json:"endpoint"`
	Channel      string `json:"channel"`
	HandlerEvent string `json:"handler_event"`
	HandlerName  string `json:"handler_name"`
}

func unpack(data []byte) (Entry, error) {
	var v Entry
	err := json.Unmarshal(data, &v)
	return v, err
}

type Feeder struct {
	view     *gocui.View
	au       aurora.Aurora
	logLevel int
}

func NewFeeder(gui *gocui.Gui, viewName string, logLevel int, au aurora.Aurora) (Feeder, error) {
	v, err := gui.View(viewName)
	if err != nil {
		return Feeder{}, err
	}

	return Feeder{view: v, logLevel: logLevel, au: au}, nil
}

func gray(v uint8) aurora.Color {
	if v > 23 {
		v = 23
	}
	return aurora.Color(232+v) << 16
}

func color(r, g, b uint8) aurora.Color {
	return aurora.Color(16+36*r+6*g+b) << 16
}

func terminator(r rune) bool {
	if r >= 0x40 && r <= 0x7e {
		return true
	}
	return false
}

// returns random color for string, will return the same color for the same string
func colorForString(au aurora.Aurora, s string) aurora.Value {
	h := fnv.New32a()
	h.Write([]byte(s))
	sum := h.Sum32()

	r, g, b := uint8(sum)&0b00000111, uint8(sum>>8)&0b00000111, uint8(sum>>16)&0b00000111
	if r > 5 {
		r = 5
	}
	if g > 5 {
		g = 5
	}
	if b > 5 {
		b = 5
	}

	// avoid dark colors
	if r+g+b < 3 {
		r += 1
		g += 1
		b += 1
	}

	return au.Index(16+36*r+6*g+b, s)
}

// rawStringLen returns a len of string ignoring included escape sequences
func rawStringLen(s string) int {
	var sequence bool
	var escLens []int
	var escLen int

	for i, r := range s {
		if !sequence {
			if r == '\033' {
				if i >= len(s)-1 { // esc seems to be last character
					continue
				}
				if s[i+1] == '[' {
					sequence = true
					escLen += 1
					continue
				}

			}
		} else {
			if r == '[' && s[i-1] == '\033' {
				escLen += 1
				continue
			}
			if terminator(r) {
				sequence = false
				escLen += 1
				escLens = append(escLens, escLen)
				escLen = 0
			} else {
				escLen += 1
			}
		}
	}
	var sum int
	for _, x := range escLens {
		sum += x
	}
	return len(s) - sum
}

func levelColor(level int) aurora.Color {
	switch level {
	case logger.ErrorLvl:
		return color(5, 1, 1)
	case logger.WarningLvl:
		return color(5, 5, 1)
	case logger.InfoLvl:
		return gray(20)
	case logger.ConnectionLvl:
		return color(1, 4, 5)
	case logger.KeysLvl:
		return gray(15)
	case logger.KeysNotAssignedLvl:
		return gray(12)
	default:
		return gray(9)
	}
}

func prepareString(msg Entry, au aurora.Aurora, width, logLevel int) string {
	if msg.Level > logLevel {
		return ""
	}

	msgColor := levelColor(msg.Level)

	t := time.Time(msg.Ts)
	timestamp := fmt.Sprintf(
		"[%s]",
		au.Reset(t.Format("15:04:05.000")).Colorize(color(1, 1, 5)).String(),
	)

	var fields []string
	if msg.Endpoint != "" {
		fields = append(fields, fmt.Sprintf("[device=%s]", colorForString(au, msg.Endpoint).String()))
	}
	if msg.Channel != "" {
		fields = append(fields, fmt.Sprintf("[%s]", colorForString(au, msg.Channel).String()))
	}
	if msg.HandlerName != "" {
		fields = append(fields, fmt.Sprintf("[keyboard=%s]", colorForString(au, msg.HandlerName).String()))
	}
	if msg.HandlerEvent != "" {
		fields = append(fields, fmt.Sprintf("[%s]", colorForString(au, msg.HandlerEvent).String()))
	}
	if logLevel >= logger.DebugLvl && msg.Caller != "" {
		x := strings.SplitN(msg.Caller, ":", 2)
		if len(x) == 2 {
			fields = append(fields, fmt.Sprintf("(%s:%s)", colorForString(au, x[0]).String(), x[1]))
		}
	}
	joined := strings.Join(fields, " ")

	if width < 0 {
		m := au.Reset(msg.Msg).Colorize(msgColor).String()
		return strings.TrimRight(fmt.Sprintf("%s %s %s", timestamp, m, joined), " ")
	}

	fieldsLen := rawStringLen(joined)
	timeLen := rawStringLen(timestamp)
	msgLen := len(msg.Msg)

	var m string
	freeSpace := width - (timeLen + 1 + msgLen + 1 + fieldsLen)
	if freeSpace < 0 {
		limit := (width - (fieldsLen + 1 + timeLen + 1)) - 3
		if limit < 20 {
			m = au.Reset(msg.Msg).Colorize(msgColor).String()
			joined = au.Gray(12, "(fields hidden)").String()
			freeSpace = width - (timeLen + 1 + msgLen + 1 + rawStringLen(joined))
			if freeSpace < 0 {
				freeSpace = 0
			}
		} else {
			m = au.Reset(msg.Msg[:limit] + "(…)").Colorize(msgColor).String()
			freeSpace = 0
		}
	} else {
		m = au.Reset(msg.Msg).Colorize(msgColor).String()
	}

	return fmt.Sprintf("%s %s%s %s", timestamp, m, strings.Repeat(" ", freeSpace), joined)
}

func (f *Feeder) Write(data []byte) {
	msg, err := unpack(data)
	if err != nil {
		f.view.Write(data)
		f.view.Write([]byte{'\n'})
		return
	}

	x, _ := f.view.Size()

	s := prepareString(msg, f.au, x, f.logLevel)
	if s != "" {
		f.view.Write([]byte(s))
		f.view.Write([]byte{'\n'})
	}
}
