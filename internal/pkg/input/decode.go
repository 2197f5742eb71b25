package input

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

const devicesPath = "/proc/bus/input/devices"

// GetHandlers returns a list of available input handlers in the system.
// Note: there is non-zero probability that returned list may be incomplete, handlers of freshly
// connected device may show up one by one.
func GetHandlers() ([]Handler, error) {
	data, err := os.ReadFile(devicesPath)
	if err != nil {
		return nil, err
	}

	return unmarshal(data)
}

// Keyboards returns keyboard handlers only.
func Keyboards() ([]Handler, error) {
	handlers, err := GetHandlers()
	if err != nil {
		return nil, err
	}

	var keyboards []Handler
	for _, h := range handlers {
		if h.IsKeyboard() {
			keyboards = append(keyboards, h)
		}
	}
	return keyboards, nil
}

// unmarshal parses /proc/bus/input/devices file
func unmarshal(data []byte) ([]Handler, error) {
	var handlers = make([]Handler, 0)

	var handler Handler
	var started bool

	flush := func() {
		if started {
			handlers = append(handlers, handler)
		}
		handler = Handler{}
		started = false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if len(line) < 3 {
			flush()
			continue
		}
		started = true

		label := line[:1]
		info := line[3:]

		switch label {
		case "I":
			ps := reflect.ValueOf(&handler.ID)
			s := ps.Elem()

			for _, param := range strings.Split(info, " ") {
				l, v, ok := strings.Cut(param, "=")
				if !ok {
					return handlers, fmt.Errorf("malformed id parameter: \"%s\"", param)
				}
				f := s.FieldByName(l)
				if !f.IsValid() {
					continue
				}

				hv, err := hex.DecodeString(fmt.Sprintf("%04s", v))
				if err != nil || len(hv) != 2 {
					return handlers, fmt.Errorf("hex decoding of \"%s\" failed: %v", param, err)
				}
				f.SetUint(uint64(binary.BigEndian.Uint16(hv)))
			}
		case "N":
			handler.Name = strings.Trim(strings.TrimPrefix(info, "Name="), "\"")
		case "P":
			handler.Phys = strings.TrimPrefix(info, "Phys=")
		case "S":
			handler.Sysfs = strings.TrimPrefix(info, "Sysfs=")
		case "U":
			handler.Uniq = strings.TrimPrefix(info, "Uniq=")
		case "H":
			// If there is at least one handler, there is additional space at the end of the line
			handlersChain := strings.TrimPrefix(info, "Handlers=")
			handler.Handlers = strings.Fields(handlersChain)
		case "B":
			l, v, ok := strings.Cut(info, "=")
			if !ok || l != "EV" {
				continue
			}
			ev, err := strconv.ParseUint(v, 16, 64)
			if err != nil {
				return handlers, fmt.Errorf("EV bitmap decoding failed: %v", err)
			}
			handler.EV = ev
		}
	}
	flush()

	return handlers, nil
}
