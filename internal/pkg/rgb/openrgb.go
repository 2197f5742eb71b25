package rgb

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gethiox/espiano/internal/pkg/input"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/holoplot/go-evdev"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/realbucksavage/openrgb-go"
)

var log = logger.GetLogger()

const keyboardControllerType = 5

type Colors struct {
	White       openrgb.Color
	Black       openrgb.Color
	C           openrgb.Color
	Highlighted openrgb.Color
	Unavailable openrgb.Color
}

type Config struct {
	Enabled    bool
	Host       string
	Port       int
	Controller string // part of controller name, matching is done by connected keyboards when empty
	UpdateRate time.Duration
	Colors     Colors
}

// ParseColor decodes "#rrggbb" or "rrggbb" hex notation.
func ParseColor(s string) (openrgb.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return openrgb.Color{}, fmt.Errorf("invalid color \"%s\": %w", s, err)
	}
	return toOpenRGB(c), nil
}

func toOpenRGB(c colorful.Color) openrgb.Color {
	r, g, b := c.Clamped().RGB255()
	return openrgb.Color{Red: r, Green: g, Blue: b}
}

// noteColors spreads held-key colors over the hue circle, one per configured note.
func noteColors(notes note.Set) map[note.Note]openrgb.Color {
	var colors = make(map[note.Note]openrgb.Color, notes.Len())
	for i, n := range notes.Notes() {
		h := 360 / float64(notes.Len()) * float64(i)
		colors[n] = toOpenRGB(colorful.Hsv(h, 1, 1))
	}
	return colors
}

// Indicator shows pressed and highlighted notes on keys of an RGB keyboard bound to them.
type Indicator struct {
	mutex       sync.Mutex
	pressed     map[note.Note]bool
	highlighted map[note.Note]bool
}

func NewIndicator() *Indicator {
	return &Indicator{
		pressed:     make(map[note.Note]bool),
		highlighted: make(map[note.Note]bool),
	}
}

func (i *Indicator) SetPressed(n note.Note, pressed bool) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.pressed[n] = pressed
}

func (i *Indicator) SetHighlighted(n note.Note, highlighted bool) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.highlighted[n] = highlighted
}

type frame struct {
	leds     int
	indexMap map[evdev.EvCode]int
	keymap   input.Keymap
	colors   Colors
	held     map[note.Note]openrgb.Color
}

func (f *frame) render(i *Indicator, ledArray []openrgb.Color) {
	for code := range f.indexMap {
		ledArray[f.indexMap[code]] = f.colors.Unavailable
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	for code, n := range f.keymap {
		id, ok := f.indexMap[code]
		if !ok {
			continue
		}

		var color openrgb.Color
		m, _ := n.MIDI()
		switch {
		case i.pressed[n]:
			color = f.held[n]
		case i.highlighted[n]:
			color = f.colors.Highlighted
		case m%12 == 0:
			color = f.colors.C
		case n.Black():
			color = f.colors.Black
		default:
			color = f.colors.White
		}
		ledArray[id] = color
	}
}

// resolveHidraw returns event name that relates to given hidraw device
// "/dev/hidraw0" > "event0"
func resolveHidraw(dev string) (string, error) {
	regex := regexp.MustCompile(`/dev/(hidraw\d+)`)
	out := regex.FindStringSubmatch(dev)
	if len(out) != 2 {
		return "", fmt.Errorf("unexpected dev format: %s", dev)
	}

	matches, err := filepath.Glob(fmt.Sprintf("/sys/class/hidraw/%s/device/input/*/event*", out[1]))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("event not found")
	}
	return filepath.Base(matches[0]), nil
}

func findController(c *openrgb.Client, name string, events map[string]bool) (openrgb.Device, int, error) {
	count, err := c.GetControllerCount()
	if err != nil {
		return openrgb.Device{}, 0, fmt.Errorf("failed to get controller count: %s", err)
	}

	if count == 0 {
		return openrgb.Device{}, 0, fmt.Errorf("no supported controllers available")
	}

	regex := regexp.MustCompile(`.*(/dev/hidraw\d+)`)

	for i := 0; i < count; i++ {
		dev, err := c.GetDeviceController(i)
		if err != nil {
			return openrgb.Device{}, 0, fmt.Errorf("getting controller information failed (%d/%d): %s", i, count, err)
		}

		if dev.Type != keyboardControllerType {
			continue
		}

		if name != "" {
			if strings.Contains(strings.ToLower(dev.Name), strings.ToLower(name)) {
				return dev, i, nil
			}
			continue
		}

		out := regex.FindStringSubmatch(dev.Location)
		if len(out) != 2 {
			continue
		}

		event, err := resolveHidraw(out[1])
		if err != nil {
			continue
		}

		if events[event] {
			return dev, i, nil
		}
	}

	return openrgb.Device{}, 0, fmt.Errorf("controller not found")
}

func connect(ctx context.Context, cfg Config) (*openrgb.Client, error) {
	var c *openrgb.Client
	var err error

	timeout := time.Now().Add(time.Second * 5)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond * 250):
		}

		c, err = openrgb.Connect(cfg.Host, cfg.Port)
		if err == nil {
			return c, nil
		}
		if time.Now().After(timeout) {
			return nil, err
		}
	}
}

// Run drives LEDs of the keyboard controller until ctx is done.
func (i *Indicator) Run(ctx context.Context, wg *sync.WaitGroup, cfg Config, notes note.Set, keymap input.Keymap) {
	defer wg.Done()

	log.Info(fmt.Sprintf("[OpenRGB] Connecting: %s:%d...", cfg.Host, cfg.Port), logger.Debug)
	c, err := connect(ctx, cfg)
	if err != nil {
		log.Info(fmt.Sprintf("[OpenRGB] Cannot connect to server: %s", err), logger.Warning)
		return
	}
	defer c.Close()

	var events = make(map[string]bool)
	keyboards, _ := input.Keyboards()
	for _, k := range keyboards {
		events[k.Event()] = true
	}

	dev, index, err := findController(c, cfg.Controller, events)
	if err != nil {
		log.Info(fmt.Sprintf("[OpenRGB] Cannot find controller: %s", err), logger.Warning)
		return
	}
	log.Info(fmt.Sprintf("[OpenRGB] Controller found: %s, index: %d", dev.Name, index), logger.Info)

	var indexMap = make(map[evdev.EvCode]int)
	for id, led := range dev.LEDs {
		key, ok := LedNameToKey[led.Name]
		if !ok {
			continue
		}
		indexMap[key] = id
	}

	f := frame{
		leds:     len(dev.Colors),
		indexMap: indexMap,
		keymap:   keymap,
		colors:   cfg.Colors,
		held:     noteColors(notes),
	}
	var ledArray = make([]openrgb.Color, f.leds)

	rate := cfg.UpdateRate
	if rate <= 0 {
		rate = time.Millisecond * 20
	}

	log.Info("[OpenRGB] LED update loop started", logger.Debug)
	nextFailedLedUpdateReport := time.Now()
	updateFails := 0
root:
	for {
		select {
		case <-ctx.Done():
			break root
		case <-time.After(rate):
		}

		f.render(i, ledArray)
		err = c.UpdateLEDs(index, ledArray)
		if err != nil {
			updateFails++
			now := time.Now()
			if now.After(nextFailedLedUpdateReport) {
				log.Info(fmt.Sprintf("[OpenRGB] Led update fails %d times, last err: %s", updateFails, err), logger.Debug)
				updateFails = 0
				nextFailedLedUpdateReport = now.Add(time.Second * 2)
			}
		}
	}

	for id := range ledArray {
		ledArray[id] = cfg.Colors.Unavailable
	}
	_ = c.UpdateLEDs(index, ledArray)
}
