// Package watch re-runs a program whenever its source file changes.
// Editors tend to replace files rather than write them in place, so the
// parent directory is watched and events are filtered down to one path.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Options configures Run.
type Options struct {
	// Debounce is how long to wait after the last event before firing.
	// Zero means 250ms, which collapses editor save bursts into one run.
	Debounce time.Duration

	Logger *slog.Logger
}

// Run calls fn once immediately, then again after every debounced burst
// of writes to path. It blocks until ctx is canceled or the watcher dies.
func Run(ctx context.Context, path string, fn func(), opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	fn()

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("source changed", "path", abs, "op", ev.Op.String())
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(opts.Debounce)
		case <-timer.C:
			fn()
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", werr)
		}
	}
}
