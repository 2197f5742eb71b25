package link

import (
	"fmt"
	"time"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}

type StatusKind int

const (
	StatusConnecting StatusKind = iota
	StatusConnected
	StatusDisconnected
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is an informational notification about the device connection.
type Status struct {
	Kind     StatusKind
	Endpoint string
	Code     int           // close code, Disconnected only (0 when unknown)
	Reason   string        // Disconnected only
	Err      error         // Error only
	Retry    time.Duration // delay of the scheduled reconnect, Disconnected only
}

func (s Status) String() string {
	switch s.Kind {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		msg := "Closed"
		if s.Code != 0 {
			msg = fmt.Sprintf("Closed (code %d)", s.Code)
		}
		if s.Reason != "" {
			msg += ": " + s.Reason
		}
		if s.Retry > 0 {
			msg += fmt.Sprintf(". Reconnecting in %s...", s.Retry)
		}
		return msg
	case StatusError:
		if s.Err != nil {
			return fmt.Sprintf("Error: %v", s.Err)
		}
		return "Error"
	default:
		return "Unknown"
	}
}
