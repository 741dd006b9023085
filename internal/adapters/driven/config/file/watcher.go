package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/logger"
)

// debounceWindow coalesces the burst of filesystem events editors
// produce for one save.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and
// hands the result to a callback. Used by `spsync schedule` so edits
// take effect without a restart.
type Watcher struct {
	store    *ConfigStore
	onChange func(domain.SyncConfig)
}

// NewWatcher creates a watcher over a store.
func NewWatcher(store *ConfigStore, onChange func(domain.SyncConfig)) *Watcher {
	return &Watcher{store: store, onChange: onChange}
}

// Run watches until the context ends. The parent directory is watched
// rather than the file itself, because editors replace files on save
// and that would drop a direct watch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(w.store.Path())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := w.store.Load()
			if err != nil {
				logger.Warn("config reload failed: %v", err)
				continue
			}
			logger.Info("configuration reloaded from %s", w.store.Path())
			w.onChange(cfg)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}
