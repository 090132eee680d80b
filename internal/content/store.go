// internal/content/store.go
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gerrors "grit/internal/errors"
	"grit/internal/object"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MinPrefix is the shortest abbreviated address Resolve accepts.
const MinPrefix = 4

func DefaultOptions() Options {
	return Options{
		CompressionLevel: zlib.BestSpeed,
		CacheSize:        4096,
	}
}

// NewFileStore stores objects under root on fs, laid out as
// root/<first 2 hex chars>/<remaining 38 hex chars>.
func NewFileStore(fs afero.Fs, root string, opts Options, logger *zap.Logger) (*FileStore, error) {
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = zlib.BestSpeed
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, gerrors.IO("creating object store directory", err)
	}

	codec, err := newCompressor(opts.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("compression level %d: %w", opts.CompressionLevel, err)
	}

	known, err := lru.New[object.ID, struct{}](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &FileStore{
		fs:     fs,
		root:   root,
		codec:  codec,
		known:  known,
		logger: logger,
	}, nil
}

// Path returns where the object with the given address lives.
func (s *FileStore) Path(id object.ID) string {
	hex := id.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Put writes obj if no object with its address exists. Existing objects are
// never rewritten or re-validated.
func (s *FileStore) Put(obj object.Object) (bool, error) {
	id := obj.ID()

	exists, err := s.Has(id)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	path := s.Path(id)
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return false, gerrors.IO("creating object directory", err)
	}

	compressed, err := s.codec.compress(obj.Encoded())
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file and rename so a reader never sees a partial object.
	tmp, err := afero.TempFile(s.fs, dir, "tmp_obj_")
	if err != nil {
		return false, gerrors.IO("creating temp object file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return false, gerrors.IO("writing object", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return false, gerrors.IO("closing object", err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return false, gerrors.IO("renaming object into place", err)
	}

	s.known.Add(id, struct{}{})
	s.logger.Debug("stored object",
		zap.String("id", id.String()),
		zap.String("kind", string(obj.Kind())),
		zap.Int("size", len(obj.Encoded())),
		zap.Int("stored_size", len(compressed)))

	return true, nil
}

// Has checks if an object exists.
func (s *FileStore) Has(id object.ID) (bool, error) {
	if s.known.Contains(id) {
		return true, nil
	}

	_, err := s.fs.Stat(s.Path(id))
	if err == nil {
		s.known.Add(id, struct{}{})
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, gerrors.IO("checking object", err)
}

// Read inflates the object at id and verifies that it hashes to id.
func (s *FileStore) Read(id object.ID) ([]byte, error) {
	compressed, err := afero.ReadFile(s.fs, s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerrors.NotFound(fmt.Sprintf("object %s not found", id))
		}
		return nil, gerrors.IO("reading object", err)
	}

	raw, err := s.codec.decompress(compressed)
	if err != nil {
		return nil, gerrors.Corrupt(fmt.Sprintf("object %s", id), err)
	}

	if object.Sum(raw) != id {
		return nil, gerrors.Corrupt(fmt.Sprintf("object %s: content hash mismatch", id), nil)
	}

	s.known.Add(id, struct{}{})
	return raw, nil
}

// Resolve expands an abbreviated address of at least MinPrefix hex digits.
func (s *FileStore) Resolve(prefix string) (object.ID, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < MinPrefix || len(prefix) > 2*object.IDSize || strings.Trim(prefix, "0123456789abcdef") != "" {
		return object.ZeroID, gerrors.ValidationError(fmt.Sprintf("invalid object name %q", prefix))
	}

	entries, err := afero.ReadDir(s.fs, filepath.Join(s.root, prefix[:2]))
	if err != nil && !os.IsNotExist(err) {
		return object.ZeroID, gerrors.IO("listing objects", err)
	}

	var matches []object.ID
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix[2:]) {
			continue
		}
		if id, err := object.ParseID(prefix[:2] + e.Name()); err == nil {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return object.ZeroID, gerrors.NotFound(fmt.Sprintf("object %s not found", prefix))
	case 1:
		return matches[0], nil
	default:
		return object.ZeroID, gerrors.ValidationError(fmt.Sprintf("short object id %s is ambiguous", prefix))
	}
}
