// Package watch notices when another process rewrites the token store.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

// StoreWatcher calls OnChange after writes to the database file (or its
// journal) have settled for the debounce interval.
type StoreWatcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error
	log      logging.Logger
}

func NewStoreWatcher(path string, debounce time.Duration, onChange func(ctx context.Context) error, log logging.Logger) *StoreWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Discard()
	}
	return &StoreWatcher{path: path, debounce: debounce, onChange: onChange, log: log}
}

// relevant reports whether name is the store file or one of SQLite's
// side files for it.
func (w *StoreWatcher) relevant(name string) bool {
	base := filepath.Base(w.path)
	n := filepath.Base(name)
	return n == base || strings.HasPrefix(n, base+"-")
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file, so replacing the file is seen too.
func (w *StoreWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Debug(ctx, "watching token store", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "store watcher error", "error", err)

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.log.Warn(ctx, "resync after store change failed", "error", err)
			}
		}
	}
}
