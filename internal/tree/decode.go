package tree

import (
	"bytes"
	"fmt"

	gerrors "grit/internal/errors"
	"grit/internal/object"
)

// Entry is one decoded record of a stored tree payload.
type Entry struct {
	Mode string
	Name string
	ID   object.ID
}

// Kind reports the kind of object the entry points at.
func (e Entry) Kind() object.Kind {
	if e.Mode == ModeDirectory {
		return object.KindTree
	}
	return object.KindBlob
}

// ParseEntries decodes a tree payload as read back from the store.
func ParseEntries(payload []byte) ([]Entry, error) {
	var entries []Entry
	for len(payload) > 0 {
		sp := bytes.IndexByte(payload, ' ')
		nul := bytes.IndexByte(payload, 0)
		if sp <= 0 || nul < sp+2 || len(payload) < nul+1+object.IDSize {
			return nil, gerrors.Corrupt(fmt.Sprintf("malformed tree entry %d", len(entries)), nil)
		}

		e := Entry{
			Mode: string(payload[:sp]),
			Name: string(payload[sp+1 : nul]),
		}
		switch e.Mode {
		case ModeRegular, ModeExecutable, ModeDirectory:
		default:
			return nil, gerrors.Corrupt(fmt.Sprintf("tree entry %q has mode %s", e.Name, e.Mode), nil)
		}
		copy(e.ID[:], payload[nul+1:])

		entries = append(entries, e)
		payload = payload[nul+1+object.IDSize:]
	}
	return entries, nil
}
