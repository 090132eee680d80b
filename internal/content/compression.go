// internal/content/compression.go
package content

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// compressor deflates object files. Writers are pooled since every object
// written during a commit goes through the same level.
type compressor struct {
	level   int
	writers sync.Pool
}

func newCompressor(level int) (*compressor, error) {
	// Validate the level once so pooled writers can't fail.
	enc, err := zlib.NewWriterLevel(io.Discard, level)
	if err != nil {
		return nil, fmt.Errorf("creating test encoder: %w", err)
	}
	enc.Close()

	return &compressor{
		level: level,
		writers: sync.Pool{
			New: func() interface{} {
				enc, _ := zlib.NewWriterLevel(nil, level)
				return enc
			},
		},
	}, nil
}

func (c *compressor) compress(content []byte) ([]byte, error) {
	enc := c.writers.Get().(*zlib.Writer)
	defer c.writers.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if _, err := enc.Write(content); err != nil {
		return nil, fmt.Errorf("deflating object: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *compressor) decompress(content []byte) ([]byte, error) {
	dec, err := zlib.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("inflating object: %w", err)
	}
	return out, nil
}
