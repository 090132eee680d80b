package catalog

import (
	"testing"
	"time"

	gerrors "grit/internal/errors"
	"grit/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndGet(t *testing.T) {
	c := setupCatalog(t)
	blob := object.NewBlob("a.txt", []byte("hello\n"), false)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	created, err := c.Record(blob, at)
	require.NoError(t, err)
	assert.True(t, created)

	meta, err := c.Get(blob.ID())
	require.NoError(t, err)
	assert.Equal(t, Meta{
		ID:        "ce013625030ba8dba906f756967f9e9ca394464a",
		Kind:      object.KindBlob,
		Size:      6,
		CreatedAt: at,
	}, meta)

	created, err = c.Record(blob, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)

	meta, err = c.Get(blob.ID())
	require.NoError(t, err)
	assert.Equal(t, at, meta.CreatedAt)
}

func TestGetMissing(t *testing.T) {
	c := setupCatalog(t)
	_, err := c.Get(object.Sum([]byte("nothing")))
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeNotFound))
}

func TestListByKind(t *testing.T) {
	c := setupCatalog(t)
	now := time.Now()

	blob := object.NewBlob("a", []byte("a"), false)
	commit := object.NewCommit(object.Sum(nil), nil, object.Signature{
		Name: "A U Thor", Email: "author@example.com", When: now,
	}, "init\n")

	for _, obj := range []object.Object{blob, commit} {
		_, err := c.Record(obj, now)
		require.NoError(t, err)
	}

	all, err := c.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	commits, err := c.List(object.KindCommit)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, commit.ID().String(), commits[0].ID)

	trees, err := c.List(object.KindTree)
	require.NoError(t, err)
	assert.Empty(t, trees)
}
