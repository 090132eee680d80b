// Package catalog records metadata for every object written to the store.
// It is an index over the object directory, never the source of truth.
package catalog

import (
	"time"

	"grit/internal/object"
	"grit/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

const prefix = "object"

// Meta describes one stored object.
type Meta struct {
	ID        string      `json:"id"`
	Kind      object.Kind `json:"kind"`
	Size      int         `json:"size"`
	CreatedAt time.Time   `json:"created_at"`
}

type Catalog struct {
	db      *badger.DB
	records *storage.BadgerStore[Meta]
}

// Open opens the catalog database in dir, or an in-memory one when dir is
// empty.
func Open(dir string) (*Catalog, error) {
	db, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		db:      db,
		records: storage.NewBadgerStore[Meta](db, prefix),
	}, nil
}

// Record adds obj if it is not already cataloged. The first sighting wins so
// CreatedAt reflects when the object entered the store.
func (c *Catalog) Record(obj object.Object, at time.Time) (bool, error) {
	_, payload, err := object.Parse(obj.Encoded())
	if err != nil {
		return false, err
	}
	return c.records.Create(obj.ID().String(), Meta{
		ID:        obj.ID().String(),
		Kind:      obj.Kind(),
		Size:      len(payload),
		CreatedAt: at.UTC(),
	})
}

func (c *Catalog) Get(id object.ID) (Meta, error) {
	return c.records.Get(id.String())
}

// List returns cataloged objects ordered by id. An empty kind lists all.
func (c *Catalog) List(kind object.Kind) ([]Meta, error) {
	return c.records.List(func(_ string, m Meta) bool {
		return kind == "" || m.Kind == kind
	})
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
