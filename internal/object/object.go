// Package object defines the canonical encodings of blobs, trees and commits.
//
// Every object is framed as "<kind> <decimal payload length>\x00<payload>"
// and addressed by the SHA-1 of that framed form.
package object

import (
	"bytes"
	"fmt"
	"strconv"

	gerrors "grit/internal/errors"
)

type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

// Object is anything that can be persisted in the object store.
type Object interface {
	// ID returns the content address. It always equals Sum(Encoded()).
	ID() ID
	Kind() Kind
	// Encoded returns the full framed canonical bytes.
	Encoded() []byte
}

// Frame wraps a payload in its object header.
func Frame(kind Kind, payload []byte) []byte {
	header := string(kind) + " " + strconv.Itoa(len(payload)) + "\x00"
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// Parse splits framed object bytes into kind and payload.
func Parse(raw []byte) (Kind, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, gerrors.Corrupt("object header not terminated", nil)
	}
	kind, size, ok := bytes.Cut(raw[:nul], []byte(" "))
	if !ok {
		return "", nil, gerrors.Corrupt(fmt.Sprintf("malformed object header %q", raw[:nul]), nil)
	}
	n, err := strconv.Atoi(string(size))
	if err != nil {
		return "", nil, gerrors.Corrupt("malformed object length", err)
	}
	payload := raw[nul+1:]
	if n != len(payload) {
		return "", nil, gerrors.Corrupt(fmt.Sprintf("object length %d, header says %d", len(payload), n), nil)
	}

	switch k := Kind(kind); k {
	case KindBlob, KindTree, KindCommit:
		return k, payload, nil
	default:
		return "", nil, gerrors.Corrupt(fmt.Sprintf("unknown object kind %q", kind), nil)
	}
}
