package melody

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gethiox/espiano/internal/pkg/logger"
)

// DetectChanges notifies about writes to given files. Parent directories are watched, so editors replacing
// the file instead of writing into it are covered as well.
func DetectChanges(ctx context.Context, paths ...string) <-chan string {
	var change = make(chan string)

	go func() {
		defer close(change)
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			log.Info(fmt.Sprintf("creating file watcher failed: %v", err), logger.Warning)
			return
		}

		go func() {
			<-ctx.Done()
			err := watcher.Close()
			if err != nil {
				log.Info(fmt.Sprintf("closing watcher failed: %v", err), logger.Warning)
			}
		}()

		var watched = make(map[string]bool)
		var dirs = make(map[string]bool)
		for _, path := range paths {
			abs, err := filepath.Abs(path)
			if err != nil {
				continue
			}
			watched[abs] = true
			dirs[filepath.Dir(abs)] = true
		}

		for dir := range dirs {
			err = watcher.Add(dir)
			if err != nil {
				log.Info(fmt.Sprintf("watching \"%s\" failed: %v", dir, err), logger.Warning)
			}
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				abs, err := filepath.Abs(event.Name)
				if err != nil || !watched[abs] {
					continue
				}
				log.Info(fmt.Sprintf("melody change detected: %s", event.Name), logger.Debug)
				select {
				case change <- abs:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Info(fmt.Sprintf("file watcher error: %v", err), logger.Warning)
			}
		}
	}()

	return change
}
