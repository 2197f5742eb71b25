package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const DefaultBackoff = time.Second * 5

type Config struct {
	Endpoint string        // "host:port" or full "ws://" URL
	Backoff  time.Duration // fixed delay before every reconnection attempt
	Notes    note.Set      // frames for other notes are dropped
	NoLogs   bool
}

// Manager owns a single logical connection to the hardware device. It translates inbound frames into
// Device channel events and keeps reconnecting with a fixed delay after every failure.
// It never holds key state on its own, every (re)connect and disconnect emits a device reset instead.
type Manager struct {
	noLogs   bool
	url      string
	endpoint string
	backoff  time.Duration
	notes    note.Set
	events   chan<- piano.Event
	dialer   *websocket.Dialer

	observers []func(Status)

	afterFunc func(time.Duration, func()) *time.Timer

	mutex      sync.Mutex
	state      State
	generation uint64 // identifies the current attempt, stale callbacks compare against it
	conn       *websocket.Conn
	cancelDial context.CancelFunc
	reconnect  *time.Timer
	closed     bool

	wg sync.WaitGroup
}

func NewManager(cfg Config, events chan<- piano.Event) *Manager {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	return &Manager{
		noLogs:    cfg.NoLogs,
		url:       endpointURL(cfg.Endpoint),
		endpoint:  cfg.Endpoint,
		backoff:   backoff,
		notes:     cfg.Notes,
		events:    events,
		dialer:    &websocket.Dialer{},
		afterFunc: time.AfterFunc,
		state:     Disconnected,
	}
}

func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint
	}
	return fmt.Sprintf("ws://%s", endpoint)
}

// OnStatus registers an observer, it has to be done before the first Connect.
func (m *Manager) OnStatus(f func(Status)) {
	m.observers = append(m.observers, f)
}

func (m *Manager) State() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

func (m *Manager) logFields(fields ...zap.Field) []zap.Field {
	return append(fields, zap.String("endpoint", m.endpoint))
}

func (m *Manager) notify(s Status) {
	s.Endpoint = m.endpoint
	for _, f := range m.observers {
		f(s)
	}
}

func (m *Manager) emit(e piano.Event) {
	m.events <- e
}

// Connect starts a new connection attempt, any pending reconnect is canceled and an existing
// connection (open or still connecting) is closed first.
func (m *Manager) Connect() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.stopReconnect()

	prevState := m.state
	prevConn := m.conn
	if m.cancelDial != nil {
		m.cancelDial()
	}

	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.conn = nil
	m.state = Connecting
	m.wg.Add(1)
	m.mutex.Unlock()

	if prevConn != nil {
		_ = prevConn.Close()
	}

	if !m.noLogs {
		log.Info(fmt.Sprintf("Connecting to %s", m.url), m.logFields(logger.Connection)...)
	}
	m.notify(Status{Kind: StatusConnecting})
	if prevState == Connected {
		m.emit(piano.ResetEvent())
	}

	go m.dial(ctx, gen)
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	conn, _, err := m.dialer.DialContext(ctx, m.url, nil)

	m.mutex.Lock()
	if gen != m.generation || m.closed {
		m.mutex.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.mutex.Unlock()
		m.handleClosed(gen, 0, "", fmt.Errorf("dial failed: %w", err))
		return
	}
	m.conn = conn
	m.state = Connected
	m.wg.Add(1)
	m.mutex.Unlock()

	log.Info("Device connected", m.logFields(logger.Info)...)
	m.notify(Status{Kind: StatusConnected})
	m.emit(piano.ResetEvent())

	go m.read(conn, gen)
}

func (m *Manager) current(gen uint64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return gen == m.generation && !m.closed
}

func (m *Manager) read(conn *websocket.Conn, gen uint64) {
	defer m.wg.Done()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				m.handleClosed(gen, closeErr.Code, closeErr.Text, nil)
			} else {
				m.handleClosed(gen, 0, "", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			if !m.noLogs {
				log.Info(fmt.Sprintf("non-text frame dropped (type %d)", messageType), m.logFields(logger.Warning)...)
			}
			continue
		}

		frame, err := ParseFrame(data, m.notes)
		if err != nil {
			log.Info(fmt.Sprintf("frame dropped: %v", err), m.logFields(logger.Warning)...)
			continue
		}

		if !m.current(gen) {
			return
		}

		if !m.noLogs {
			log.Info(fmt.Sprintf("received %s", frame), m.logFields(logger.Keys)...)
		}

		switch frame.Edge {
		case On:
			m.emit(piano.StartEvent(piano.Device, frame.Note))
		case Off:
			m.emit(piano.EndEvent(piano.Device, frame.Note))
		}
	}
}

// handleClosed is the single path for every terminal event of an attempt: failed dial, remote close, read error.
func (m *Manager) handleClosed(gen uint64, code int, reason string, err error) {
	m.mutex.Lock()
	if gen != m.generation || m.closed {
		m.mutex.Unlock()
		return
	}
	alreadyDown := m.state == Disconnected
	m.conn = nil
	m.state = Disconnected
	m.scheduleReconnect()
	m.mutex.Unlock()

	if alreadyDown {
		return
	}

	if err != nil {
		log.Info(fmt.Sprintf("connection error: %v", err), m.logFields(logger.Warning)...)
		m.notify(Status{Kind: StatusError, Err: err})
	}
	log.Info(fmt.Sprintf("Device disconnected (code %d), reconnecting in %s", code, m.backoff), m.logFields(logger.Info)...)
	m.notify(Status{Kind: StatusDisconnected, Code: code, Reason: reason, Retry: m.backoff})
	m.emit(piano.ResetEvent())
}

// scheduleReconnect replaces a pending attempt, so at most one is pending at any time. Caller holds mutex.
func (m *Manager) scheduleReconnect() {
	m.stopReconnect()
	m.reconnect = m.afterFunc(m.backoff, m.Connect)
}

// stopReconnect cancels a pending attempt. Caller holds mutex.
func (m *Manager) stopReconnect() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

// Close shuts the manager down permanently, no reconnection is attempted afterwards.
func (m *Manager) Close() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.stopReconnect()
	if m.cancelDial != nil {
		m.cancelDial()
	}
	conn := m.conn
	prevState := m.state
	m.conn = nil
	m.state = Closing
	m.mutex.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	m.wg.Wait()

	m.mutex.Lock()
	m.state = Disconnected
	m.mutex.Unlock()

	log.Info("Device connection closed", m.logFields(logger.Debug)...)
	if prevState != Disconnected {
		m.notify(Status{Kind: StatusDisconnected, Code: websocket.CloseNormalClosure, Reason: "closed"})
		m.emit(piano.ResetEvent())
	}
}

// Run keeps the connection alive until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	m.Connect()
	<-ctx.Done()
	m.Close()
}
