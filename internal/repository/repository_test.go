package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gerrors "grit/internal/errors"
	"grit/internal/index"
	"grit/internal/object"
	"grit/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Unix(1700000000, 0).UTC()

func writeFiles(t *testing.T, root string, files map[string]string, mode os.FileMode) {
	t.Helper()
	for p, body := range files {
		abs := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(body), mode))
		require.NoError(t, os.Chmod(abs, mode))
	}
}

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	root := t.TempDir()
	created, err := Initialize(root)
	require.NoError(t, err)
	require.True(t, created)

	r, err := Open(root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	r.now = func() time.Time { return fixedTime }
	r.Config.Author.Name = "A U Thor"
	r.Config.Author.Email = "author@example.com"
	r.Config.Commit.Timezone = "-0400"
	return r
}

func TestInitialize(t *testing.T) {
	root := t.TempDir()

	_, err := Open(root, nil)
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeNotFound))

	created, err := Initialize(root)
	require.NoError(t, err)
	assert.True(t, created)
	for _, p := range []string{".grit", ".grit/objects", ".grit/config.json"} {
		_, err := os.Stat(filepath.Join(root, p))
		assert.NoError(t, err, p)
	}

	created, err = Initialize(root)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAddAndCommit(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{
		"README.md":    "# grit\n",
		"lib/util.txt": "util\n",
	}, 0644)
	writeFiles(t, r.Root, map[string]string{"run.sh": "#!/bin/sh\n"}, 0755)

	added, err := r.Add([]string{"."})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "lib/util.txt", "run.sh"}, added)

	// The index is on disk before any commit.
	persisted, err := index.Load(metaPath(r.Root, indexFile))
	require.NoError(t, err)
	assert.Equal(t, added, persisted.Paths())

	commit, err := r.Commit("first commit")
	require.NoError(t, err)
	assert.Nil(t, commit.Parent)
	assert.Equal(t, "first commit\n", commit.Message)

	expected, err := tree.Build([]*object.Blob{
		object.NewBlob("README.md", []byte("# grit\n"), false),
		object.NewBlob("lib/util.txt", []byte("util\n"), false),
		object.NewBlob("run.sh", []byte("#!/bin/sh\n"), true),
	})
	require.NoError(t, err)
	assert.Equal(t, expected.ID(), commit.Tree)

	for obj := range expected.Walk() {
		raw, err := r.Store.Read(obj.ID())
		require.NoError(t, err, "missing %s %s", obj.Kind(), obj.ID())
		assert.Equal(t, obj.Encoded(), raw)
	}

	head, ok, err := r.Refs.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, commit.ID(), head)

	raw, err := r.Store.Read(head)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "author A U Thor <author@example.com> 1700000000 -0400\n")
}

func TestCommitChain(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"a.txt": "one"}, 0644)
	_, err := r.Add([]string{"a.txt"})
	require.NoError(t, err)
	first, err := r.Commit("one")
	require.NoError(t, err)

	writeFiles(t, r.Root, map[string]string{"a.txt": "two"}, 0644)
	_, err = r.Add([]string{"a.txt"})
	require.NoError(t, err)
	second, err := r.Commit("two")
	require.NoError(t, err)

	require.NotNil(t, second.Parent)
	assert.Equal(t, first.ID(), *second.Parent)
	assert.NotEqual(t, first.Tree, second.Tree)

	log, err := r.Log(0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, second.ID(), log[0].ID())
	assert.Equal(t, first.ID(), log[1].ID())

	log, err = r.Log(1)
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestLogBeforeFirstCommit(t *testing.T) {
	r := setupRepo(t)
	log, err := r.Log(0)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestCommitUsesStagedContent(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"a.txt": "staged"}, 0644)
	_, err := r.Add([]string{"a.txt"})
	require.NoError(t, err)

	writeFiles(t, r.Root, map[string]string{"a.txt": "edited after add"}, 0755)
	commit, err := r.Commit("snapshot")
	require.NoError(t, err)

	expected, err := tree.Build([]*object.Blob{object.NewBlob("a.txt", []byte("staged"), false)})
	require.NoError(t, err)
	assert.Equal(t, expected.ID(), commit.Tree)
}

func TestEmptyCommit(t *testing.T) {
	r := setupRepo(t)
	commit, err := r.Commit("nothing staged")
	require.NoError(t, err)
	assert.Equal(t, "4b825dc642cb6eb9a060e54bf8d69288fbee4904", commit.Tree.String())
}

func TestCommitRequiresMessage(t *testing.T) {
	r := setupRepo(t)
	_, err := r.Commit("  \n")
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeValidation))
}

func TestAddNoMatchStagesNothing(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"a.txt": "a"}, 0644)

	_, err := r.Add([]string{"a.txt", "missing.txt"})
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeNoMatch))
	assert.Equal(t, 0, r.Index.Len())

	_, err = os.Stat(filepath.Join(r.Root, ".grit", "index"))
	assert.True(t, os.IsNotExist(err))
}

func TestAddReplacesFileWithDirectory(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"alice.txt": "a", "bob.txt": "b"}, 0644)
	_, err := r.Add([]string{"."})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(r.Root, "alice.txt")))
	writeFiles(t, r.Root, map[string]string{"alice.txt/nested.txt": "n"}, 0644)
	_, err = r.Add([]string{"alice.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice.txt/nested.txt", "bob.txt"}, r.Index.Paths())
	_, err = r.Commit("nested")
	require.NoError(t, err)
}

func TestCatFile(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"hello.txt": "hello\n"}, 0644)
	_, err := r.Add([]string{"hello.txt"})
	require.NoError(t, err)

	_, _, err = r.CatFile("HEAD")
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeNotFound))

	commit, err := r.Commit("hello")
	require.NoError(t, err)

	kind, payload, err := r.CatFile("HEAD")
	require.NoError(t, err)
	assert.Equal(t, object.KindCommit, kind)
	assert.Equal(t, commit.Encoded()[len(commit.Encoded())-len(payload):], payload)

	kind, payload, err = r.CatFile("ce013625")
	require.NoError(t, err)
	assert.Equal(t, object.KindBlob, kind)
	assert.Equal(t, "hello\n", string(payload))

	kind, _, err = r.CatFile(commit.Tree.String())
	require.NoError(t, err)
	assert.Equal(t, object.KindTree, kind)
}

func TestObjectsCatalog(t *testing.T) {
	r := setupRepo(t)
	writeFiles(t, r.Root, map[string]string{"a.txt": "a", "dir/b.txt": "b"}, 0644)
	_, err := r.Add([]string{"."})
	require.NoError(t, err)
	_, err = r.Commit("catalog")
	require.NoError(t, err)

	all, err := r.Objects("")
	require.NoError(t, err)
	// 2 blobs, 2 trees, 1 commit.
	assert.Len(t, all, 5)

	commits, err := r.Objects(object.KindCommit)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, fixedTime, commits[0].CreatedAt)

	require.NoError(t, r.Close())
	r.Catalog = nil
	_, err = r.Objects("")
	assert.True(t, gerrors.IsType(err, gerrors.ErrorTypeValidation))
}
