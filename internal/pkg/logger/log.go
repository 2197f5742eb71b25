package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Messages = make(chan []byte, 128)

const (
	ErrorLvl           = 0
	WarningLvl         = 1
	InfoLvl            = 2
	ConnectionLvl      = 3
	KeysLvl            = 4
	KeysNotAssignedLvl = 5

	DebugLvl = 378
)

var (
	Error           = zap.Int("level", ErrorLvl)
	Warning         = zap.Int("level", WarningLvl)
	Info            = zap.Int("level", InfoLvl)
	Connection      = zap.Int("level", ConnectionLvl)
	Keys            = zap.Int("level", KeysLvl)
	KeysNotAssigned = zap.Int("level", KeysNotAssignedLvl)

	Debug = zap.Int("level", DebugLvl)
)

type chanWriter struct {
	sync.Mutex
}

func (w *chanWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	var newSlice = make([]byte, len(p))
	copy(newSlice, p)
	Messages <- newSlice
	w.Unlock()
	return len(p), nil
}

func (w *chanWriter) Sync() error {
	return nil
}

// GetLogger returns a logger that serializes every entry as a single JSON line into Messages.
// Whoever owns the process has to drain Messages, otherwise logging blocks after 128 entries.
func GetLogger() *zap.Logger {
	writer := &chanWriter{}
	cfg := zap.NewProductionEncoderConfig()
	cfg.SkipLineEnding = true
	cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
	cfg.LevelKey = ""
	encoder := zapcore.NewJSONEncoder(cfg)

	return zap.New(
		zapcore.NewCore(encoder, zapcore.Lock(writer), zap.DebugLevel),
		zap.AddCaller(),
	)
}

// Drain discards everything written into Messages until stop is closed, handy for tests and silent mode.
func Drain(stop <-chan struct{}) {
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-Messages:
			}
		}
	}()
}
