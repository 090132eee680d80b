package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStager struct {
	mu      sync.Mutex
	tracked map[string]bool
	batches [][]string
}

func newFakeStager(tracked ...string) *fakeStager {
	s := &fakeStager{tracked: make(map[string]bool)}
	for _, p := range tracked {
		s.tracked[p] = true
	}
	return s
}

func (s *fakeStager) Add(paths []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]string(nil), paths...))
	return paths, nil
}

func (s *fakeStager) IsTracked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracked[path]
}

func (s *fakeStager) staged() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.batches...)
}

func setupWatcher(t *testing.T, stager Stager) (*Watcher, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".grit", "objects"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))

	w, err := New(root, stager, nil)
	require.NoError(t, err)
	return w, root
}

func write(t *testing.T, root, rel, body string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(body), 0644))
	return abs
}

func TestNewSkipsIgnoredDirectories(t *testing.T) {
	w, root := setupWatcher(t, newFakeStager())
	defer w.Close()

	watched := w.watcher.WatchList()
	assert.Contains(t, watched, root)
	assert.Contains(t, watched, filepath.Join(root, "src"))
	assert.NotContains(t, watched, filepath.Join(root, ".grit"))
	assert.NotContains(t, watched, filepath.Join(root, ".grit", "objects"))
}

func TestHandleQueuesTrackedFiles(t *testing.T) {
	stager := newFakeStager("src/main.go", "README.md")
	w, root := setupWatcher(t, stager)
	defer w.Close()

	main := write(t, root, "src/main.go", "package main")
	readme := write(t, root, "README.md", "hi")
	untracked := write(t, root, "notes.txt", "x")
	meta := write(t, root, ".grit/index", "x")

	assert.True(t, w.handle(fsnotify.Event{Name: main, Op: fsnotify.Write}))
	assert.True(t, w.handle(fsnotify.Event{Name: readme, Op: fsnotify.Create}))
	assert.False(t, w.handle(fsnotify.Event{Name: untracked, Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: meta, Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: main, Op: fsnotify.Chmod}))

	w.flush()
	assert.Equal(t, [][]string{{"README.md", "src/main.go"}}, stager.staged())
	assert.Empty(t, w.pending)

	// Nothing pending, nothing staged.
	w.flush()
	assert.Len(t, stager.staged(), 1)
}

func TestHandleRemoveDropsPending(t *testing.T) {
	stager := newFakeStager("a.txt")
	w, root := setupWatcher(t, stager)
	defer w.Close()

	a := write(t, root, "a.txt", "a")
	require.True(t, w.handle(fsnotify.Event{Name: a, Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: a, Op: fsnotify.Remove}))

	w.flush()
	assert.Empty(t, stager.staged())
}

func TestFlushSkipsVanishedFiles(t *testing.T) {
	stager := newFakeStager("a.txt", "b.txt")
	w, root := setupWatcher(t, stager)
	defer w.Close()

	a := write(t, root, "a.txt", "a")
	b := write(t, root, "b.txt", "b")
	require.True(t, w.handle(fsnotify.Event{Name: a, Op: fsnotify.Write}))
	require.True(t, w.handle(fsnotify.Event{Name: b, Op: fsnotify.Write}))
	require.NoError(t, os.Remove(b))

	w.flush()
	assert.Equal(t, [][]string{{"a.txt"}}, stager.staged())
}

func TestHandleWatchesNewDirectories(t *testing.T) {
	w, root := setupWatcher(t, newFakeStager())
	defer w.Close()

	dir := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(dir, 0755))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "pkg"), Op: fsnotify.Create}))

	watched := w.watcher.WatchList()
	assert.Contains(t, watched, filepath.Join(root, "pkg"))
	assert.Contains(t, watched, dir)
}

func TestRunRestagesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	stager := newFakeStager("src/main.go")
	w, root := setupWatcher(t, stager)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	write(t, root, "src/main.go", "package main\n")

	require.Eventually(t, func() bool {
		for _, batch := range stager.staged() {
			if len(batch) == 1 && batch[0] == "src/main.go" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
