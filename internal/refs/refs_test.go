package refs

import (
	"os"
	"path/filepath"
	"testing"

	gerrors "grit/internal/errors"
	"grit/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadHeadBeforeFirstCommit(t *testing.T) {
	r := New(t.TempDir())

	id, ok, err := r.ReadHead()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, id.IsZero())
}

func TestUpdateHead(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	first := object.Sum([]byte("first"))
	second := object.Sum([]byte("second"))

	require.NoError(t, r.UpdateHead(first))
	data, err := os.ReadFile(filepath.Join(dir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, first.String()+"\n", string(data))

	require.NoError(t, r.UpdateHead(second))
	id, ok, err := r.ReadHead()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, second, id)
}

func TestReadHeadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEAD"), []byte("ref: refs/heads/main\n"), 0644))

	_, _, err := New(dir).ReadHead()
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeCorrupt))
}

func TestUpdateHeadMissingDirectory(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing"))
	err := r.UpdateHead(object.Sum(nil))
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeIO))
}
