// Package watch re-stages tracked files when they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"grit/internal/workspace"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before staging.
const DefaultDebounce = 200 * time.Millisecond

// Stager is the part of a repository the watcher drives.
type Stager interface {
	Add(paths []string) ([]string, error)
	IsTracked(path string) bool
}

// Watcher follows every directory under root. Only files already tracked
// by the stager are re-staged; new files still need an explicit add.
type Watcher struct {
	root     string
	stager   Stager
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]struct{}
	logger   *zap.Logger
}

func New(root string, stager Stager, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		stager:   stager,
		watcher:  fw,
		debounce: DefaultDebounce,
		pending:  make(map[string]struct{}),
		logger:   logger,
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("initializing watcher: %w", err)
	}
	return w, nil
}

// addTree watches dir and every directory beneath it that is not ignored.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(p); ok && workspace.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Run processes events until ctx is done. Staging errors are logged and do
// not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		case <-timer.C:
			w.flush()
		}
	}
}

// handle records the effect of one event and reports whether a tracked file
// is now waiting to be staged.
func (w *Watcher) handle(event fsnotify.Event) bool {
	rel, ok := w.rel(event.Name)
	if !ok || rel == "." || workspace.Ignored(rel) {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("watching new directory", zap.String("path", rel), zap.Error(err))
			}
			return false
		}
	case event.Has(fsnotify.Write):
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.stager.IsTracked(rel) {
			w.logger.Info("tracked file removed; index left unchanged", zap.String("path", rel))
		}
		delete(w.pending, rel)
		return false
	default:
		return false
	}

	if !w.stager.IsTracked(rel) {
		return false
	}
	w.pending[rel] = struct{}{}
	return true
}

// flush stages every pending path that still exists as a regular file.
func (w *Watcher) flush() {
	if len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(p)))
		if err == nil && info.Mode().IsRegular() {
			paths = append(paths, p)
		}
	}
	clear(w.pending)
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	staged, err := w.stager.Add(paths)
	if err != nil {
		w.logger.Error("re-staging changed files", zap.Strings("paths", paths), zap.Error(err))
		return
	}
	w.logger.Info("re-staged changed files", zap.Strings("paths", staged))
}

// Close stops watching. It is only needed when Run was never called.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
