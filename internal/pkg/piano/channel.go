package piano

import "strings"

// Channel is one of the independent input sources that can hold a note.
type Channel uint8

const (
	Device Channel = iota
	PointerOrTouch
	PhysicalKeyboard

	channelCount
)

var Channels = []Channel{Device, PointerOrTouch, PhysicalKeyboard}

func (c Channel) String() string {
	switch c {
	case Device:
		return "device"
	case PointerOrTouch:
		return "pointer"
	case PhysicalKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// ChannelSet is a bitset over the fixed channel enumeration.
type ChannelSet uint8

func (s ChannelSet) Has(c Channel) bool {
	return s&(1<<c) != 0
}

func (s ChannelSet) With(c Channel) ChannelSet {
	return s | 1<<c
}

func (s ChannelSet) Without(c Channel) ChannelSet {
	return s &^ (1 << c)
}

func (s ChannelSet) Empty() bool {
	return s == 0
}

func (s ChannelSet) Len() int {
	var n int
	for c := Channel(0); c < channelCount; c++ {
		if s.Has(c) {
			n++
		}
	}
	return n
}

func (s ChannelSet) String() string {
	var names []string
	for _, c := range Channels {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// SetOf builds a ChannelSet from given channels.
func SetOf(channels ...Channel) ChannelSet {
	var s ChannelSet
	for _, c := range channels {
		s = s.With(c)
	}
	return s
}
