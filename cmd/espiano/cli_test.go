package main

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	stop := make(chan struct{})
	logger.Drain(stop)
	code := m.Run()
	close(stop)
	os.Exit(code)
}

func TestRawStringLen(t *testing.T) {
	for i, tc := range []struct {
		input    string
		expected int
	}{
		{input: "", expected: 0},
		{input: "a", expected: 1},
		{input: "a\033", expected: 2},
		{input: "a\033[", expected: 3},
		{input: "a\033[2", expected: 4},
		{input: "a\033[2A", expected: 1},
		{input: "a\033[2Aa", expected: 2},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			l := rawStringLen(tc.input)
			assert.Equal(t, tc.expected, l)
		})
	}
}

func TestUnpack(t *testing.T) {
	data := []byte(`{"ts":1700000000000000000,"caller":"link/manager.go:171","msg":"Device connected","level":2,"endpoint":"10.0.0.5:81"}`)

	entry, err := unpack(data)
	assert.Nil(t, err)
	assert.Equal(t, "Device connected", entry.Msg)
	assert.Equal(t, logger.InfoLvl, entry.Level)
	assert.Equal(t, "10.0.0.5:81", entry.Endpoint)
	assert.Equal(t, int64(1700000000000000000), time.Time(entry.Ts).UnixNano())

	_, err = unpack([]byte("not a json"))
	assert.NotNil(t, err)
}

func TestPrepareString(t *testing.T) {
	au := aurora.NewAurora(false)
	entry := Entry{
		Ts:      TimeNanosecond(time.Date(2024, 1, 1, 12, 30, 45, 123000000, time.Local)),
		Caller:  "piano/reconciler.go:96",
		Msg:     "C4 pressed",
		Level:   logger.KeysLvl,
		Channel: "pointer",
	}

	for _, tc := range []struct {
		name     string
		logLevel int
		width    int
		expected string
	}{
		{name: "filtered out", logLevel: logger.ConnectionLvl, width: -1, expected: ""},
		{name: "unlimited width", logLevel: logger.KeysLvl, width: -1, expected: "[12:30:45.123] C4 pressed [pointer]"},
		{name: "padded", logLevel: logger.KeysLvl, width: 40, expected: "[12:30:45.123] C4 pressed      [pointer]"},
		{name: "caller in debug", logLevel: logger.DebugLvl, width: -1,
			expected: "[12:30:45.123] C4 pressed [pointer] (piano/reconciler.go:96)"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, prepareString(entry, au, tc.width, tc.logLevel))
		})
	}
}

func TestLevelColor(t *testing.T) {
	assert.NotEqual(t, levelColor(logger.ErrorLvl), levelColor(logger.WarningLvl))
	assert.Equal(t, levelColor(logger.DebugLvl), levelColor(1000))
}
