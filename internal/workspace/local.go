// Package workspace enumerates and reads the files under a repository root.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gerrors "grit/internal/errors"

	"github.com/spf13/afero"
)

// MetaDir is the name of the repository metadata directory.
const MetaDir = ".grit"

// ignored top-level names are never listed, wherever the listing starts.
var ignored = map[string]bool{
	MetaDir: true,
	".git":  true,
}

// FindRoot searches startDir and its parents for the directory holding
// MetaDir.
func FindRoot(fsys afero.Fs, startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if ok, _ := afero.DirExists(fsys, filepath.Join(dir, MetaDir)); ok {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", gerrors.NotFound(fmt.Sprintf("not a grit repository (or any parent up to /): %s", startDir))
}

// LocalWorkspace reads files relative to Root. Paths passed in and returned
// are slash separated and relative to Root.
type LocalWorkspace struct {
	Root string
	fs   afero.Fs
}

func NewLocalWorkspace(fsys afero.Fs, root string) *LocalWorkspace {
	return &LocalWorkspace{Root: root, fs: fsys}
}

// Rel converts a path given on the command line, relative to cwd or
// absolute, into a workspace path.
func (w *LocalWorkspace) Rel(cwd, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	rel, err := filepath.Rel(w.Root, p)
	if err != nil {
		return "", gerrors.NoMatch(p)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", gerrors.NoMatch(p)
	}
	return rel, nil
}

// ListFiles resolves p to the regular files it names: p itself when it is a
// file, or every file beneath it in sorted order when it is a directory.
func (w *LocalWorkspace) ListFiles(p string) ([]string, error) {
	p = path.Clean(p)
	if strings.HasPrefix(p, "../") || p == ".." || Ignored(p) {
		return nil, gerrors.NoMatch(p)
	}

	info, err := w.fs.Stat(w.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerrors.NoMatch(p)
		}
		return nil, gerrors.IO(fmt.Sprintf("stat %s", p), err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	var files []string
	err = afero.Walk(w.fs, w.abs(p), func(abs string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.Root, abs)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if Ignored(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, gerrors.IO(fmt.Sprintf("listing %s", p), err)
	}

	sort.Strings(files)
	return files, nil
}

func (w *LocalWorkspace) ReadFile(p string) ([]byte, error) {
	data, err := afero.ReadFile(w.fs, w.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerrors.NoMatch(p)
		}
		return nil, gerrors.IO(fmt.Sprintf("reading %s", p), err)
	}
	return data, nil
}

func (w *LocalWorkspace) StatFile(p string) (fs.FileInfo, error) {
	info, err := w.fs.Stat(w.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerrors.NoMatch(p)
		}
		return nil, gerrors.IO(fmt.Sprintf("stat %s", p), err)
	}
	return info, nil
}

func (w *LocalWorkspace) abs(p string) string {
	return filepath.Join(w.Root, filepath.FromSlash(p))
}

// Ignored reports whether the first component of the slash separated
// workspace path p is on the ignore list. Names deeper in the tree are not
// special.
func Ignored(p string) bool {
	first, _, _ := strings.Cut(p, "/")
	return ignored[first]
}
