package input

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/piano"
)

type MonitorConfig struct {
	Pattern       string // glob of event devices, keyboards are discovered automatically when empty
	DiscoveryRate time.Duration
	Grab          bool
	NoLogs        bool
}

func globHandlers(pattern string) ([]Handler, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var handlers = make([]Handler, 0, len(paths))
	for _, p := range paths {
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			continue
		}
		handlers = append(handlers, Handler{Name: filepath.Base(p), Handlers: []string{filepath.Base(resolved)}})
	}
	return handlers, nil
}

func (cfg MonitorConfig) discover() ([]Handler, error) {
	if cfg.Pattern != "" {
		return globHandlers(cfg.Pattern)
	}
	return Keyboards()
}

// MonitorKeyboards keeps a Reader running for every connected keyboard until ctx is done.
// Keyboards connected later are picked up on next discovery round.
func MonitorKeyboards(ctx context.Context, wg *sync.WaitGroup, cfg MonitorConfig, keymap Keymap, events chan<- piano.Event) {
	defer wg.Done()

	rate := cfg.DiscoveryRate
	if rate <= 0 {
		rate = time.Second
	}

	var mutex sync.Mutex
	var tracked = make(map[string]bool)
	var readers sync.WaitGroup

	log.Info("Monitor new keyboards engaged", logger.Debug)
root:
	for {
		handlers, err := cfg.discover()
		if err != nil {
			log.Info(fmt.Sprintf("keyboard discovery failed: %v", err), logger.Warning)
		}

		for _, h := range handlers {
			path := h.EventPath()
			mutex.Lock()
			if path == "" || tracked[path] {
				mutex.Unlock()
				continue
			}
			tracked[path] = true
			mutex.Unlock()

			log.Info(fmt.Sprintf("New keyboard: %s", h.String()), logger.Info)
			readers.Add(1)
			go func(h Handler) {
				defer readers.Done()
				err := NewReader(h, keymap, cfg.Grab, cfg.NoLogs).Run(ctx, events)
				if err != nil {
					log.Info(fmt.Sprintf("keyboard %s: %v", h.String(), err), logger.Warning)
				}
				mutex.Lock()
				delete(tracked, h.EventPath())
				mutex.Unlock()
			}(h)
		}

		select {
		case <-ctx.Done():
			break root
		case <-time.After(rate):
		}
	}

	readers.Wait()
	log.Info("Monitor new keyboards disengaged", logger.Debug)
}
