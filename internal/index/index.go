// Package index implements the staging index: the persistent, sorted set of
// paths queued for the next commit.
package index

import (
	"fmt"
	"os"

	gerrors "grit/internal/errors"
	"grit/internal/object"

	"github.com/google/btree"
	"github.com/google/renameio"
)

const btreeDegree = 32

// Index maps paths to entries in path order.
//
// children is derived from entries: for every directory that has tracked
// paths beneath it, the set of those paths at any depth. It is only used to
// find what a new file entry displaces and is rebuilt from entries on load.
type Index struct {
	entries  *btree.BTreeG[*Entry]
	children map[string]map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{
		entries:  btree.NewG(btreeDegree, lessEntry),
		children: make(map[string]map[string]struct{}),
	}
}

// Load reads the index file at path. A missing file yields an empty index;
// any structural or checksum problem is a corruption error.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, gerrors.IO("reading index", err)
	}

	ix := New()
	if err := ix.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("loading index %s: %w", path, err)
	}
	return ix, nil
}

// Persist replaces the file at path with the full serialized index in one
// atomic rename.
func (ix *Index) Persist(path string) error {
	data, err := ix.MarshalBinary()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return gerrors.IO("writing index", err)
	}
	return nil
}

// Add tracks path, first evicting every entry that can no longer coexist
// with it: files at any ancestor directory of path, and everything tracked
// beneath path when path previously named a directory.
func (ix *Index) Add(path string, id object.ID, meta Metadata) {
	path = cleanPath(path)

	for _, dir := range parentDirs(path) {
		ix.remove(dir)
	}
	if under, ok := ix.children[path]; ok {
		doomed := make([]string, 0, len(under))
		for p := range under {
			doomed = append(doomed, p)
		}
		for _, p := range doomed {
			ix.remove(p)
		}
	}

	ix.entries.ReplaceOrInsert(&Entry{Path: path, ID: id, Metadata: meta})
	ix.link(path, true)
}

func (ix *Index) remove(path string) {
	if _, ok := ix.entries.Delete(&Entry{Path: path}); ok {
		ix.link(path, false)
	}
}

// link is the single place children is updated: it adds or removes path
// from the set of every ancestor directory.
func (ix *Index) link(path string, add bool) {
	for _, dir := range parentDirs(path) {
		set := ix.children[dir]
		if add {
			if set == nil {
				set = make(map[string]struct{})
				ix.children[dir] = set
			}
			set[path] = struct{}{}
			continue
		}
		delete(set, path)
		if len(set) == 0 {
			delete(ix.children, dir)
		}
	}
}

// Entry returns the entry tracked at path.
func (ix *Index) Entry(path string) (*Entry, bool) {
	return ix.entries.Get(&Entry{Path: cleanPath(path)})
}

// Tracked reports whether path is tracked as a file.
func (ix *Index) Tracked(path string) bool {
	_, ok := ix.Entry(path)
	return ok
}

// Entries returns all entries sorted by path.
func (ix *Index) Entries() []*Entry {
	out := make([]*Entry, 0, ix.entries.Len())
	ix.entries.Ascend(func(e *Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Paths returns all tracked paths in sorted order.
func (ix *Index) Paths() []string {
	out := make([]string, 0, ix.entries.Len())
	ix.entries.Ascend(func(e *Entry) bool {
		out = append(out, e.Path)
		return true
	})
	return out
}

func (ix *Index) Len() int {
	return ix.entries.Len()
}
