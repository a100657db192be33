package ratesfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tripbudget/internal/core"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a rates file whenever it changes on disk. The parent directory
// is watched so editors that replace the file by rename are picked up too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(context.Context, []core.Currency) error

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. onChange receives every successfully
// loaded revision; a revision that fails to load is logged and skipped.
func NewWatcher(path string, debounce time.Duration, onChange func(context.Context, []core.Currency) error) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	slog.InfoContext(ctx, "Watching currency rates file", "rates_file", w.path)

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.DebugContext(ctx, "Rates file event", "rates_file", event.Name, "op", event.Op.String())
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.ErrorContext(ctx, "Rates file watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	currencies, err := Load(w.path)
	if err != nil {
		slog.ErrorContext(ctx, "Rates file reload failed, keeping current rates",
			"rates_file", w.path, "error", err)
		return
	}
	if err := w.onChange(ctx, currencies); err != nil {
		slog.ErrorContext(ctx, "Applying reloaded rates failed",
			"rates_file", w.path, "error", err)
		return
	}
	slog.InfoContext(ctx, "Currency rates reloaded", "rates_file", w.path, "currencies", len(currencies))
}
