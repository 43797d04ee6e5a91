package session

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const watchDebounce = 300 * time.Millisecond

// Watch calls onChange when the database file at path (or its WAL) changes,
// so a logout in another process is noticed. It returns once the watcher is
// running; the watcher stops when ctx is done.
func Watch(ctx context.Context, path string, logger zerolog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	base := filepath.Base(path)
	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(watchDebounce, func() {
			if ctx.Err() != nil {
				return
			}
			onChange()
		})
	}

	go func() {
		defer func() {
			_ = watcher.Close()
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(event.Name), base) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug().Err(err).Msg("session watcher error")
			}
		}
	}()
	return nil
}
