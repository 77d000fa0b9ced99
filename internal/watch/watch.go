// Package watch re-runs a sync whenever files below the watched
// directories change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc is called once per settled burst of events.
type RunFunc func(ctx context.Context) error

// Watcher watches directory trees on the OS filesystem.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration
	Run      RunFunc
	Logger   *slog.Logger
}

// New creates a watcher for dirs calling run.
func New(dirs []string, run RunFunc) *Watcher {
	return &Watcher{
		Dirs:     dirs,
		Debounce: DefaultDebounce,
		Run:      run,
		Logger:   slog.Default(),
	}
}

// Watch blocks until ctx is cancelled. Errors from Run are logged and
// the loop keeps going. Missing directories are skipped.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, dir := range w.Dirs {
		if err := w.addTree(fw, dir); err != nil {
			return err
		}
	}
	w.Logger.Info("watching", "dirs", w.Dirs)

	timer := time.NewTimer(w.Debounce)
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
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.Logger.Warn("watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			w.Logger.Debug("fs event", "op", ev.Op.String(), "path", ev.Name)
			timer.Reset(w.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if err := w.Run(ctx); err != nil {
				w.Logger.Error("sync failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		w.Logger.Debug("watch dir missing", "dir", root)
		return nil
	}
	return err
}
