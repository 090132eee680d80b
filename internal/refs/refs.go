// Package refs tracks the current head commit.
package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gerrors "grit/internal/errors"
	"grit/internal/object"

	"github.com/google/renameio"
)

const headFile = "HEAD"

// Refs reads and writes the HEAD file of a repository directory.
type Refs struct {
	path string
}

func New(dir string) *Refs {
	return &Refs{path: filepath.Join(dir, headFile)}
}

// ReadHead returns the commit HEAD points at. ok is false before the first
// commit.
func (r *Refs) ReadHead() (id object.ID, ok bool, err error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return object.ZeroID, false, nil
		}
		return object.ZeroID, false, gerrors.IO("reading HEAD", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return object.ZeroID, false, nil
	}
	id, err = object.ParseID(text)
	if err != nil {
		return object.ZeroID, false, gerrors.Corrupt(fmt.Sprintf("HEAD holds %q", text), err)
	}
	return id, true, nil
}

// UpdateHead points HEAD at id. The file is replaced in one rename so a
// reader never sees a partial id.
func (r *Refs) UpdateHead(id object.ID) error {
	if err := renameio.WriteFile(r.path, []byte(id.String()+"\n"), 0644); err != nil {
		return gerrors.IO("writing HEAD", err)
	}
	return nil
}
