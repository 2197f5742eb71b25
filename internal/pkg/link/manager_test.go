package link

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	stop := make(chan struct{})
	logger.Drain(stop)
	code := m.Run()
	close(stop)
	os.Exit(code)
}

type testServer struct {
	*httptest.Server
	conns chan *websocket.Conn
}

func newTestServer() *testServer {
	var upgrader = websocket.Upgrader{}
	ts := &testServer{conns: make(chan *websocket.Conn, 8)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
	}))
	return ts
}

func (ts *testServer) endpoint() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(time.Second * 2):
		t.Fatal("no connection accepted")
		return nil
	}
}

type statusRecorder struct {
	statuses chan Status
}

func newStatusRecorder(m *Manager) *statusRecorder {
	r := &statusRecorder{statuses: make(chan Status, 32)}
	m.OnStatus(func(s Status) { r.statuses <- s })
	return r
}

func (r *statusRecorder) next(t *testing.T) Status {
	t.Helper()
	select {
	case s := <-r.statuses:
		return s
	case <-time.After(time.Second * 2):
		t.Fatal("no status received")
		return Status{}
	}
}

func (r *statusRecorder) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case s := <-r.statuses:
		t.Fatalf("unexpected status: %s", s)
	case <-time.After(within):
	}
}

func nextEvent(t *testing.T, events <-chan piano.Event) piano.Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(time.Second * 2):
		t.Fatal("no event received")
		return piano.Event{}
	}
}

func TestManagerFrames(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: ts.endpoint(), Backoff: time.Hour, Notes: testNotes, NoLogs: true}, events)
	statuses := newStatusRecorder(m)

	m.Connect()
	conn := ts.accept(t)
	defer conn.Close()

	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	assert.Equal(t, StatusConnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))
	assert.Equal(t, Connected, m.State())

	for _, msg := range []string{"c4_on", "garbage", "x9_on", "c4_pressed", "c4_off"} {
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	}
	assert.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("d4_on")))
	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("e4_on")))

	assert.Equal(t, piano.StartEvent(piano.Device, "c4"), nextEvent(t, events))
	assert.Equal(t, piano.EndEvent(piano.Device, "c4"), nextEvent(t, events))
	assert.Equal(t, piano.StartEvent(piano.Device, "e4"), nextEvent(t, events))

	m.Close()
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, StatusDisconnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))
}

func TestManagerReconnect(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: ts.endpoint(), Backoff: time.Millisecond * 50, Notes: testNotes, NoLogs: true}, events)
	statuses := newStatusRecorder(m)
	defer m.Close()

	m.Connect()
	conn := ts.accept(t)
	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	assert.Equal(t, StatusConnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))

	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("g4_on")))
	assert.Equal(t, piano.StartEvent(piano.Device, "g4"), nextEvent(t, events))

	assert.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4000, "bye")))
	conn.Close()

	s := statuses.next(t)
	assert.Equal(t, StatusDisconnected, s.Kind)
	assert.Equal(t, 4000, s.Code)
	assert.Equal(t, "bye", s.Reason)
	assert.Equal(t, time.Millisecond*50, s.Retry)
	assert.Equal(t, "Closed (code 4000): bye. Reconnecting in 50ms...", s.String())
	// held device key gets released by the reset
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))

	conn = ts.accept(t)
	defer conn.Close()
	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	assert.Equal(t, StatusConnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))
}

func TestManagerDialFailure(t *testing.T) {
	ts := newTestServer()
	endpoint := ts.endpoint()
	ts.Close()

	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: endpoint, Backoff: time.Hour, Notes: testNotes, NoLogs: true}, events)
	statuses := newStatusRecorder(m)

	m.Connect()
	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	s := statuses.next(t)
	assert.Equal(t, StatusError, s.Kind)
	assert.Error(t, s.Err)
	s = statuses.next(t)
	assert.Equal(t, StatusDisconnected, s.Kind)
	assert.Equal(t, time.Hour, s.Retry)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))
	assert.Equal(t, Disconnected, m.State())

	m.Close()
	statuses.none(t, time.Millisecond*50)
}

func TestReconnectIsSingular(t *testing.T) {
	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: "127.0.0.1:1", Notes: testNotes, NoLogs: true}, events)

	var timers []*time.Timer
	m.afterFunc = func(d time.Duration, f func()) *time.Timer {
		assert.Equal(t, DefaultBackoff, d)
		timer := time.AfterFunc(time.Hour, f)
		timers = append(timers, timer)
		return timer
	}

	m.generation = 1
	m.state = Connected
	m.handleClosed(1, 1006, "", nil)
	m.handleClosed(1, 1006, "", nil)
	m.handleClosed(0, 1006, "", nil) // stale attempt

	assert.Equal(t, 2, len(timers))
	var pending int
	for _, timer := range timers {
		if timer.Stop() {
			pending++
		}
	}
	assert.Equal(t, 1, pending)

	assert.Equal(t, 1, len(events))
	assert.Equal(t, piano.ResetEvent(), <-events)
}

func TestCloseIsTerminal(t *testing.T) {
	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: "127.0.0.1:1", Notes: testNotes, NoLogs: true}, events)

	var scheduled int
	m.afterFunc = func(d time.Duration, f func()) *time.Timer {
		scheduled++
		return time.AfterFunc(time.Hour, f)
	}

	m.Close()
	m.Connect()
	m.handleClosed(m.generation, 1006, "", nil)
	m.Close()

	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 0, scheduled)
	assert.Equal(t, 0, len(events))
}

func TestConnectSupersedesPrevious(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	events := make(chan piano.Event, 16)
	m := NewManager(Config{Endpoint: ts.endpoint(), Backoff: time.Hour, Notes: testNotes, NoLogs: true}, events)
	statuses := newStatusRecorder(m)
	defer m.Close()

	m.Connect()
	first := ts.accept(t)
	defer first.Close()
	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	assert.Equal(t, StatusConnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))

	m.Connect()
	second := ts.accept(t)
	defer second.Close()
	assert.Equal(t, StatusConnecting, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))
	assert.Equal(t, StatusConnected, statuses.next(t).Kind)
	assert.Equal(t, piano.ResetEvent(), nextEvent(t, events))

	// closing of the superseded connection is not reported
	statuses.none(t, time.Millisecond*100)

	assert.NoError(t, second.WriteMessage(websocket.TextMessage, []byte("a4_on")))
	assert.Equal(t, piano.StartEvent(piano.Device, "a4"), nextEvent(t, events))
}
