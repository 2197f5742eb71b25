package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/d2r2/go-hd44780"
	"github.com/gethiox/espiano/internal/pkg/display"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/rgb"
	"github.com/gethiox/espiano/internal/pkg/sound"
	"github.com/go-ini/ini"
	"github.com/realbucksavage/openrgb-go"
)

type ESPiano struct {
	Endpoint       string
	ReconnectDelay time.Duration
	Notes          note.Set
	LogViewRate    time.Duration
	LogBufferSize  int
}

type Keyboard struct {
	Enabled       bool
	Devices       string // glob, automatic discovery when empty
	DiscoveryRate time.Duration
	Keymap        string
}

type Melody struct {
	File            string
	MidiDir         string
	TrainingPresses int
}

type ESPianoConfig struct {
	ESPiano  ESPiano
	Keyboard Keyboard
	Sound    sound.Config
	Melody   Melody
	Screen   display.ScreenConfig
	OpenRGB  rgb.Config
}

func mustKey(section *ini.Section, name string) *ini.Key {
	key, err := section.GetKey(name)
	if err != nil {
		panic(fmt.Errorf("[%s] %w", section.Name(), err))
	}
	return key
}

func mustInt(section *ini.Section, name string) int {
	i, err := mustKey(section, name).Int()
	if err != nil {
		panic(fmt.Errorf("[%s] %s: %w", section.Name(), name, err))
	}
	return i
}

func mustBool(section *ini.Section, name string) bool {
	b, err := mustKey(section, name).Bool()
	if err != nil {
		panic(fmt.Errorf("[%s] %s: %w", section.Name(), name, err))
	}
	return b
}

func mustFloat(section *ini.Section, name string) float64 {
	f, err := mustKey(section, name).Float64()
	if err != nil {
		panic(fmt.Errorf("[%s] %s: %w", section.Name(), name, err))
	}
	return f
}

func mustSection(cfg *ini.File, name string) *ini.Section {
	section, err := cfg.GetSection(name)
	if err != nil {
		panic(err)
	}
	return section
}

func mustColor(section *ini.Section, name string) openrgb.Color {
	c, err := rgb.ParseColor(mustKey(section, name).String())
	if err != nil {
		panic(fmt.Errorf("[%s] %s: %w", section.Name(), name, err))
	}
	return c
}

// rate converts "times per second" into an interval
func rate(perSecond int) time.Duration {
	if perSecond <= 0 {
		perSecond = 1
	}
	return time.Second / time.Duration(perSecond)
}

func LoadESPianoConfig(path string) ESPianoConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	cfg, err := ini.Load(data)
	if err != nil {
		panic(err)
	}

	var c ESPianoConfig

	// [espiano]
	espiano := mustSection(cfg, "espiano")
	c.ESPiano.Endpoint = mustKey(espiano, "endpoint").String()
	c.ESPiano.ReconnectDelay = time.Millisecond * time.Duration(mustInt(espiano, "reconnect_delay"))
	c.ESPiano.Notes, err = note.ParseSet(mustKey(espiano, "notes").String())
	if err != nil {
		panic(fmt.Errorf("[espiano] notes: %w", err))
	}
	for _, n := range c.ESPiano.Notes.Notes() {
		if _, err := n.MIDI(); err != nil {
			panic(fmt.Errorf("[espiano] notes: %w", err))
		}
	}
	c.ESPiano.LogViewRate = rate(mustInt(espiano, "log_view_rate"))
	c.ESPiano.LogBufferSize = mustInt(espiano, "log_buffer_size")

	// [keyboard]
	keyboard := mustSection(cfg, "keyboard")
	c.Keyboard.Enabled = mustBool(keyboard, "enabled")
	c.Keyboard.Devices = mustKey(keyboard, "devices").String()
	c.Keyboard.DiscoveryRate = rate(mustInt(keyboard, "discovery_rate"))
	c.Keyboard.Keymap = mustKey(keyboard, "keymap").String()

	// [sound]
	snd := mustSection(cfg, "sound")
	c.Sound.Backend = mustKey(snd, "backend").String()
	c.Sound.Decay = time.Millisecond * time.Duration(mustInt(snd, "decay"))
	c.Sound.Volume = mustFloat(snd, "volume")
	c.Sound.Port = mustKey(snd, "midi_port").String()
	c.Sound.Channel = uint8(mustInt(snd, "midi_channel"))
	c.Sound.Velocity = uint8(mustInt(snd, "velocity"))

	// [melody]
	mel := mustSection(cfg, "melody")
	c.Melody.File = mustKey(mel, "file").String()
	c.Melody.MidiDir = mustKey(mel, "midi_dir").String()
	c.Melody.TrainingPresses = mustInt(mel, "training_presses")

	// [screen]
	screen := mustSection(cfg, "screen")
	c.Screen.Enabled = mustBool(screen, "enabled")
	switch t := mustKey(screen, "type").String(); t {
	case "16x2":
		c.Screen.LcdType = hd44780.LCD_16x2
	case "20x4":
		c.Screen.LcdType = hd44780.LCD_20x4
	default:
		panic(fmt.Errorf("[screen] unsupported type \"%s\"", t))
	}
	c.Screen.Bus = mustInt(screen, "bus")
	c.Screen.Address = uint8(mustInt(screen, "address"))
	c.Screen.UpdateRate = mustInt(screen, "update_rate")
	for i := range c.Screen.ExitMessage {
		c.Screen.ExitMessage[i] = mustKey(screen, fmt.Sprintf("exit_message%d", i+1)).String()
	}

	// [openrgb]
	orgb := mustSection(cfg, "openrgb")
	c.OpenRGB.Enabled = mustBool(orgb, "enabled")
	c.OpenRGB.Host = mustKey(orgb, "host").String()
	c.OpenRGB.Port = mustInt(orgb, "port")
	c.OpenRGB.Controller = mustKey(orgb, "controller").String()
	c.OpenRGB.UpdateRate = rate(mustInt(orgb, "update_rate"))
	c.OpenRGB.Colors = rgb.Colors{
		White:       mustColor(orgb, "color_white"),
		Black:       mustColor(orgb, "color_black"),
		C:           mustColor(orgb, "color_c"),
		Highlighted: mustColor(orgb, "color_highlighted"),
		Unavailable: mustColor(orgb, "color_unavailable"),
	}

	return c
}

//go:embed espiano-config/espiano.config
//go:embed espiano-config/keymap.toml
//go:embed espiano-config/melodies.yaml
var templateConfig embed.FS

const (
	configDir  = "espiano-config"
	configFile = configDir + "/espiano.config"
)

// createConfigDirectoryIfNeeded creates config directory with template files if necessary.
// Missing template files are restored, existing ones stay intact.
func createConfigDirectoryIfNeeded() error {
	_, err := os.Stat(configDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot open config directory: %w", err)
		}
		log.Info("config not exist, generating tree...", logger.Info)
	}

	err = fs.WalkDir(templateConfig, configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			err := os.MkdirAll(path, 0o777)
			if err != nil {
				return fmt.Errorf("cannot create \"%s\" directory: %w", path, err)
			}
			return nil
		}

		_, err = os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unexpected error when reading \"%s\" file: %w", path, err)
		}

		data, err := fs.ReadFile(templateConfig, path)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" template file: %w", path, err)
		}

		err = os.WriteFile(path, data, 0o666)
		if err != nil {
			return fmt.Errorf("cannot write data into \"%s\" file: %w", path, err)
		}

		log.Info(fmt.Sprintf("Created \"%s\" file", path), logger.Debug)
		return nil
	})
	if err != nil {
		return fmt.Errorf("config generation failed: %w", err)
	}

	return os.MkdirAll(filepath.Join(configDir, "midi"), 0o777)
}
