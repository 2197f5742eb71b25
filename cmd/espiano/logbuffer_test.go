package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func messages(data ...string) [][]byte {
	var out [][]byte
	for _, d := range data {
		out = append(out, []byte(d))
	}
	return out
}

func TestLogBuffer(t *testing.T) {
	buf := newLogBuffer(3)
	assert.Nil(t, buf.ReadLastMessages(5))

	buf.WriteMessage([]byte("a"))
	buf.WriteMessage([]byte("b"))
	assert.Equal(t, messages("a", "b"), buf.ReadLastMessages(5))
	assert.Equal(t, messages("b"), buf.ReadLastMessages(1))

	buf.WriteMessage([]byte("c"))
	buf.WriteMessage([]byte("d"))
	assert.Equal(t, messages("b", "c", "d"), buf.ReadLastMessages(3))
	assert.Equal(t, messages("c", "d"), buf.ReadLastMessages(2))
	assert.Nil(t, buf.ReadLastMessages(0))
}
