package rgb

import (
	"strings"

	"github.com/holoplot/go-evdev"
)

var LedNameToKey = map[string]evdev.EvCode{} // filled up with init()

var KeyToLedName = map[evdev.EvCode]string{ // hardware button to OpenRGB LED name mapping
	evdev.KEY_GRAVE:      "Key: `",
	evdev.KEY_TAB:        "Key: Tab",
	evdev.KEY_CAPSLOCK:   "Key: Caps Lock",
	evdev.KEY_LEFTSHIFT:  "Key: Left Shift",
	evdev.KEY_SPACE:      "Key: Space",
	evdev.KEY_COMMA:      "Key: ,",
	evdev.KEY_DOT:        "Key: .",
	evdev.KEY_SEMICOLON:  "Key: ;",
	evdev.KEY_SLASH:      "Key: /",
	evdev.KEY_MINUS:      "Key: -",
	evdev.KEY_EQUAL:      "Key: =",
	evdev.KEY_LEFTBRACE:  "Key: [",
	evdev.KEY_RIGHTBRACE: "Key: ]",
	evdev.KEY_APOSTROPHE: "Key: '",
	evdev.KEY_BACKSLASH:  "Key: \\ (ANSI)",
	evdev.KEY_ENTER:      "Key: Enter",
	evdev.KEY_RIGHTSHIFT: "Key: Right Shift",
}

func init() {
	// letters and digits follow "KEY_X" -> "Key: X" pattern
	for name, code := range evdev.KEYFromString {
		label := strings.TrimPrefix(name, "KEY_")
		if len(label) == 1 && ((label[0] >= 'A' && label[0] <= 'Z') || (label[0] >= '0' && label[0] <= '9')) {
			KeyToLedName[code] = "Key: " + label
		}
	}

	for k, v := range KeyToLedName {
		LedNameToKey[v] = k
	}
}
