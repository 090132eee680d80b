package index

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	gerrors "grit/internal/errors"
	"grit/internal/object"
)

// On-disk layout, all integers big-endian:
//
//	header   "DIRC" | version u32 (2) | entry count u32
//	entry    ctime s, ctime ns, mtime s, mtime ns, dev, ino, mode, uid, gid,
//	         size (u32 each) | 20 byte id | flags u16 = min(len(path), 0xFFF) |
//	         path | NUL | zero padding to a multiple of 8
//	trailer  SHA-1 of everything before it
const (
	signature     = "DIRC"
	version       = 2
	headerSize    = 12
	entryFixed    = 10*4 + object.IDSize + 2
	entryBlock    = 8
	maxPathLength = 0xFFF
	trailerSize   = sha1.Size
)

// MarshalBinary serializes the index in path order.
func (ix *Index) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+ix.entries.Len()*(entryFixed+32)+trailerSize))

	buf.WriteString(signature)
	binary.Write(buf, binary.BigEndian, uint32(version))
	binary.Write(buf, binary.BigEndian, uint32(ix.entries.Len()))

	var err error
	ix.entries.Ascend(func(e *Entry) bool {
		err = writeEntry(buf, e)
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, e *Entry) error {
	if bytes.IndexByte([]byte(e.Path), 0) >= 0 {
		return gerrors.ValidationError(fmt.Sprintf("path %q contains a NUL byte", e.Path))
	}

	m := e.Metadata
	for _, v := range [...]uint32{
		m.CTime, m.CTimeNano, m.MTime, m.MTimeNano,
		m.Dev, m.Ino, m.Mode, m.UID, m.GID, m.Size,
	} {
		binary.Write(buf, binary.BigEndian, v)
	}
	buf.Write(e.ID[:])
	binary.Write(buf, binary.BigEndian, uint16(min(len(e.Path), maxPathLength)))
	buf.WriteString(e.Path)

	n := entryFixed + len(e.Path) + 1
	buf.Write(make([]byte, 1+padding(n)))
	return nil
}

func padding(n int) int {
	return (entryBlock - n%entryBlock) % entryBlock
}

// UnmarshalBinary replaces the contents of ix with the decoded data and
// rebuilds the derived directory map.
func (ix *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize+trailerSize {
		return gerrors.Corrupt("index file too short", nil)
	}
	if string(data[:4]) != signature {
		return gerrors.Corrupt(fmt.Sprintf("bad index signature %q", data[:4]), nil)
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != version {
		return gerrors.Corrupt(fmt.Sprintf("unsupported index version %d", v), nil)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	fresh := New()
	pos := headerSize
	for i := uint32(0); i < count; i++ {
		e, n, err := readEntry(data[pos:])
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		fresh.entries.ReplaceOrInsert(e)
		pos += n
	}

	if len(data)-pos != trailerSize {
		return gerrors.Corrupt(fmt.Sprintf("expected %d trailer bytes, found %d", trailerSize, len(data)-pos), nil)
	}
	if sum := sha1.Sum(data[:pos]); !bytes.Equal(sum[:], data[pos:]) {
		return gerrors.Corrupt("index checksum mismatch", nil)
	}

	fresh.entries.Ascend(func(e *Entry) bool {
		fresh.link(e.Path, true)
		return true
	})
	*ix = *fresh
	return nil
}

// readEntry decodes one entry from the front of data and returns the number
// of bytes it occupied, padding included.
func readEntry(data []byte) (*Entry, int, error) {
	if len(data) < entryFixed {
		return nil, 0, gerrors.Corrupt("truncated index entry", nil)
	}

	var fields [10]uint32
	for i := range fields {
		fields[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	e := &Entry{
		Metadata: Metadata{
			CTime:     fields[0],
			CTimeNano: fields[1],
			MTime:     fields[2],
			MTimeNano: fields[3],
			Dev:       fields[4],
			Ino:       fields[5],
			Mode:      fields[6],
			UID:       fields[7],
			GID:       fields[8],
			Size:      fields[9],
		},
	}
	copy(e.ID[:], data[40:40+object.IDSize])
	flags := int(binary.BigEndian.Uint16(data[40+object.IDSize:]))

	rest := data[entryFixed:]
	var length int
	if flags < maxPathLength {
		if len(rest) < flags+1 {
			return nil, 0, gerrors.Corrupt("truncated index entry path", nil)
		}
		if rest[flags] != 0 {
			return nil, 0, gerrors.Corrupt("index entry path not NUL terminated", nil)
		}
		length = flags
	} else {
		// The real length did not fit in the flags field.
		length = bytes.IndexByte(rest, 0)
		if length < 0 {
			return nil, 0, gerrors.Corrupt("index entry path not NUL terminated", nil)
		}
	}
	e.Path = string(rest[:length])

	n := entryFixed + length + 1
	pad := padding(n)
	if len(data) < n+pad {
		return nil, 0, gerrors.Corrupt("truncated index entry padding", nil)
	}
	for _, b := range data[n : n+pad] {
		if b != 0 {
			return nil, 0, gerrors.Corrupt("non-zero index entry padding", nil)
		}
	}
	return e, n + pad, nil
}
