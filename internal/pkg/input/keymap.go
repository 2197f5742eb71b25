package input

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/holoplot/go-evdev"
	"github.com/pelletier/go-toml/v2"
)

// Keymap binds keyboard keys to piano notes.
type Keymap map[evdev.EvCode]note.Note

type TOMLKeymap struct {
	Keymap map[string]string `toml:"keymap"`
}

var keyNames = make(map[evdev.EvCode]string, len(evdev.KEYFromString))

func init() {
	for name, code := range evdev.KEYFromString {
		// several names can share one code, shortest-then-alphabetical wins for stable output
		current, ok := keyNames[code]
		if !ok || len(name) < len(current) || (len(name) == len(current) && name < current) {
			keyNames[code] = name
		}
	}
}

// KeyName returns name of the key code, or its hex representation when the name is unknown.
func KeyName(code evdev.EvCode) string {
	name, ok := keyNames[code]
	if !ok {
		return fmt.Sprintf("x%x", uint16(code))
	}
	return name
}

func TomlKeyToEvCode(key string, lookupTable map[string]evdev.EvCode) (evdev.EvCode, error) {
	if strings.HasPrefix(key, "x") {
		keyTrimmed := strings.TrimPrefix(key, "x")
		evcode, err := strconv.ParseUint(keyTrimmed, 16, 16)
		if err != nil {
			return evdev.EvCode(0), fmt.Errorf("convertion hex value \"%s\" failed: %w", keyTrimmed, err)
		}
		return evdev.EvCode(evcode), nil
	}

	evcode, ok := lookupTable[key]
	if !ok {
		return evdev.EvCode(0), fmt.Errorf("EvCode name \"%s\" not found / not supported", key)
	}
	return evcode, nil
}

// ParseKeymap decodes keymap TOML document, every mapped note has to be one of given notes.
func ParseKeymap(data []byte, notes note.Set) (Keymap, error) {
	cfg := TOMLKeymap{}

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	err := d.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing toml failed: %w", err)
	}

	var keymap = make(Keymap, len(cfg.Keymap))
	for evcodeRaw, noteRaw := range cfg.Keymap {
		evcode, err := TomlKeyToEvCode(evcodeRaw, evdev.KEYFromString)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse evcode key: %w", evcodeRaw, err)
		}

		n := note.Note(strings.ToLower(strings.TrimSpace(noteRaw)))
		if !notes.Contains(n) {
			return nil, fmt.Errorf("%s: note \"%s\" is not one of configured notes", evcodeRaw, noteRaw)
		}
		keymap[evcode] = n
	}

	return keymap, nil
}

// DefaultKeymap binds home row keys to given notes, from left to right.
func DefaultKeymap(notes note.Set) Keymap {
	var row = []evdev.EvCode{
		evdev.KEY_A, evdev.KEY_S, evdev.KEY_D, evdev.KEY_F, evdev.KEY_G, evdev.KEY_H,
		evdev.KEY_J, evdev.KEY_K, evdev.KEY_L, evdev.KEY_SEMICOLON, evdev.KEY_APOSTROPHE,
	}

	var keymap = make(Keymap)
	for i, n := range notes.Notes() {
		if i >= len(row) {
			break
		}
		keymap[row[i]] = n
	}
	return keymap
}

// KeysFor returns names of all keys bound to given note.
func (k Keymap) KeysFor(n note.Note) []string {
	var keys []string
	for code, bound := range k {
		if bound == n {
			keys = append(keys, KeyName(code))
		}
	}
	sort.Strings(keys)
	return keys
}
