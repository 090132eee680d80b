package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	gerrors "grit/internal/errors"
)

// IDSize is the width of a content address in bytes.
const IDSize = sha1.Size

// ID is the content address of an object: the SHA-1 of its canonical
// encoding.
type ID [IDSize]byte

// ZeroID is never the address of a valid object.
var ZeroID ID

// Sum hashes a canonical encoding.
func Sum(data []byte) ID {
	return ID(sha1.Sum(data))
}

// ParseID decodes a 40 character hex address.
func ParseID(s string) (ID, error) {
	var id ID
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(IDSize) {
		return id, gerrors.ValidationError(fmt.Sprintf("invalid object id %q", s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, gerrors.ValidationError(fmt.Sprintf("invalid object id %q", s))
	}
	return id, nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) IsZero() bool {
	return id == ZeroID
}

// Short returns the abbreviated form used in CLI output.
func (id ID) Short() string {
	return id.String()[:7]
}
