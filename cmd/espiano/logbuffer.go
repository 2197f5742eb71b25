package main

import "sync"

// logBuffer keeps a fixed number of most recent log messages.
type logBuffer struct {
	mutex    sync.Mutex
	messages [][]byte
	next     int
	full     bool
}

func newLogBuffer(size int) *logBuffer {
	if size <= 0 {
		size = 1000
	}
	return &logBuffer{messages: make([][]byte, size)}
}

func (b *logBuffer) WriteMessage(msg []byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.messages[b.next] = msg
	b.next++
	if b.next == len(b.messages) {
		b.next = 0
		b.full = true
	}
}

func (b *logBuffer) len() int {
	if b.full {
		return len(b.messages)
	}
	return b.next
}

// ReadLastMessages returns up to n most recent messages, oldest first.
func (b *logBuffer) ReadLastMessages(n int) [][]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	count := b.len()
	if n > count {
		n = count
	}
	if n <= 0 {
		return nil
	}

	var out = make([][]byte, 0, n)
	start := b.next - n
	if start < 0 {
		start += len(b.messages)
	}
	for i := 0; i < n; i++ {
		out = append(out, b.messages[(start+i)%len(b.messages)])
	}
	return out
}
