package content

import (
	"sync"

	"grit/internal/object"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store is a write-once, content-addressed object store.
type Store interface {
	// Put persists obj unless its address is already present. It reports
	// whether a new file was written.
	Put(obj object.Object) (bool, error)
	Has(id object.ID) (bool, error)
	// Read returns the canonical bytes of the object at id.
	Read(id object.ID) ([]byte, error)
}

var _ Store = (*FileStore)(nil)

// Options configures a FileStore.
type Options struct {
	// CompressionLevel is a zlib level; BestSpeed unless set.
	CompressionLevel int
	// CacheSize bounds the number of addresses remembered as present.
	CacheSize int
}

type FileStore struct {
	fs     afero.Fs
	root   string
	codec  *compressor
	known  *lru.Cache[object.ID, struct{}]
	mu     sync.Mutex // Serializes writes to the same directory
	logger *zap.Logger
}
