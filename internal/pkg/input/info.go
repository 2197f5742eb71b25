package input

import (
	"fmt"
	"strings"

	"github.com/holoplot/go-evdev"
)

type PhysicalID string

// Handler contains information of a single reported event device,
// it is supposed to be created by unmarshal function only
type Handler struct {
	ID    InputID // ID of the device
	Name  string  // name of the device
	Phys  string  // physical path to the device in the system hierarchy
	Sysfs string  // sysfs path
	Uniq  string  // unique identification code for the device (if device has it)

	Handlers []string // list of input handles associated with the device
	EV       uint64   // bitmap of supported event types
}

type InputID struct {
	Bus     uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

func (i *InputID) String() string {
	return fmt.Sprintf("0x%04x 0x%04x 0x%04x 0x%04x", i.Bus, i.Vendor, i.Product, i.Version)
}

// Event returns event name, like "event0" for /dev/input/event0
func (h *Handler) Event() string {
	for _, handler := range h.Handlers {
		if strings.HasPrefix(handler, "event") {
			return handler
		}
	}
	return ""
}

// EventPath returns a /dev/input/event filepath for button presses
func (h *Handler) EventPath() string {
	event := h.Event()
	if event == "" {
		return ""
	}
	return fmt.Sprintf("/dev/input/%s", event)
}

func (h *Handler) supports(t evdev.EvType) bool {
	return h.EV&(1<<uint(t)) != 0
}

// IsKeyboard tells if handler reports keys with autorepeat, which is the case for standard and NKRO keyboard
// handlers. Mice, multimedia and system handlers do not repeat.
func (h *Handler) IsKeyboard() bool {
	return h.Event() != "" && h.supports(evdev.EV_KEY) && h.supports(evdev.EV_REP)
}

// PhysicalUUID returns unique UUID based on connection of given USB port
// The main usage is to identify groups of handlers that represent one physical device
func (h *Handler) PhysicalUUID() PhysicalID {
	phys := strings.Split(h.Phys, "/")
	return PhysicalID(phys[0])
}

func (h *Handler) String() string {
	return fmt.Sprintf("\"%s\" (%s, %s)", h.Name, h.Event(), h.ID.String())
}
