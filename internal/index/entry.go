package index

import (
	"io/fs"
	"path"

	"grit/internal/object"
)

const (
	ModeRegular    uint32 = 0o100644
	ModeExecutable uint32 = 0o100755
)

// Metadata is the filesystem snapshot cached for a tracked path. All fields
// are truncated to 32 bits on disk.
type Metadata struct {
	CTime     uint32
	CTimeNano uint32
	MTime     uint32
	MTimeNano uint32
	Dev       uint32
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint32
}

// NewMetadata converts the result of a stat call. Platform specific fields
// are filled in where the platform exposes them.
func NewMetadata(fi fs.FileInfo) Metadata {
	mode := ModeRegular
	if fi.Mode().Perm()&0o111 != 0 {
		mode = ModeExecutable
	}

	mtime := fi.ModTime()
	m := Metadata{
		CTime:     uint32(mtime.Unix()),
		CTimeNano: uint32(mtime.Nanosecond()),
		MTime:     uint32(mtime.Unix()),
		MTimeNano: uint32(mtime.Nanosecond()),
		Mode:      mode,
		Size:      uint32(fi.Size()),
	}
	fillStat(&m, fi)
	return m
}

func (m Metadata) Executable() bool {
	return m.Mode == ModeExecutable
}

// Entry is one tracked path.
type Entry struct {
	Path     string
	ID       object.ID
	Metadata Metadata
}

func lessEntry(a, b *Entry) bool {
	return a.Path < b.Path
}

// parentDirs returns every proper ancestor directory of p, outermost first:
// "a/b/c.txt" yields ["a", "a/b"].
func parentDirs(p string) []string {
	var dirs []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func cleanPath(p string) string {
	return path.Clean(p)
}
