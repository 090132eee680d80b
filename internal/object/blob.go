package object

import (
	"fmt"
	"strings"

	gerrors "grit/internal/errors"
)

// Blob is the content of a single file together with the path it was read
// from. Only the content participates in the address.
type Blob struct {
	Path       string
	Data       []byte
	Executable bool

	id      ID
	encoded []byte
}

func NewBlob(path string, data []byte, executable bool) *Blob {
	encoded := Frame(KindBlob, data)
	return &Blob{
		Path:       path,
		Data:       data,
		Executable: executable,
		id:         Sum(encoded),
		encoded:    encoded,
	}
}

func (b *Blob) ID() ID          { return b.id }
func (b *Blob) Kind() Kind      { return KindBlob }
func (b *Blob) Encoded() []byte { return b.encoded }

// Compare orders blobs by path, then address, then content.
func (b *Blob) Compare(other *Blob) int {
	if c := strings.Compare(b.Path, other.Path); c != 0 {
		return c
	}
	if c := strings.Compare(string(b.id[:]), string(other.id[:])); c != 0 {
		return c
	}
	return strings.Compare(string(b.Data), string(other.Data))
}

// ParseBlob decodes framed blob bytes read back from the store.
func ParseBlob(path string, raw []byte, executable bool) (*Blob, error) {
	kind, payload, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if kind != KindBlob {
		return nil, gerrors.ValidationError(fmt.Sprintf("object is a %s, not a blob", kind))
	}
	return NewBlob(path, payload, executable), nil
}
