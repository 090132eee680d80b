// Package storage keeps JSON records in badger under a key prefix.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gerrors "grit/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the badger database at dir. An empty dir opens an in-memory
// database.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, gerrors.IO("opening database", err)
	}
	return db, nil
}

// BadgerStore stores values of type T as JSON under "<prefix>:<key>".
type BadgerStore[T any] struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore[T any](db *badger.DB, prefix string) *BadgerStore[T] {
	return &BadgerStore[T]{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore[T]) makeKey(key string) []byte {
	return []byte(s.prefix + ":" + key)
}

func (s *BadgerStore[T]) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

// Put sets key to value, replacing any previous value.
func (s *BadgerStore[T]) Put(key string, value T) error {
	if key == "" {
		return gerrors.ValidationError("key cannot be empty")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(key), data)
	})
}

// Create sets key to value only when key is absent. It reports whether the
// value was written.
func (s *BadgerStore[T]) Create(key string, value T) (bool, error) {
	if key == "" {
		return false, gerrors.ValidationError("key cannot be empty")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshaling %s: %w", key, err)
	}

	created := false
	err = s.db.Update(func(txn *badger.Txn) error {
		k := s.makeKey(key)
		_, err := txn.Get(k)
		if err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		created = true
		return txn.Set(k, data)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *BadgerStore[T]) Get(key string) (T, error) {
	var value T

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &value)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return value, gerrors.NotFound(fmt.Sprintf("%s not found: %s", s.prefix, key))
	}
	return value, err
}

func (s *BadgerStore[T]) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.makeKey(key))
	})
}

// List returns every value in key order. keep, when non-nil, filters the
// result.
func (s *BadgerStore[T]) List(keep func(key string, value T) bool) ([]T, error) {
	var results []T

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(s.prefix + ":")
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var value T
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			})
			if err != nil {
				return err
			}
			if keep == nil || keep(s.stripPrefix(item.Key()), value) {
				results = append(results, value)
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.prefix, err)
	}
	return results, nil
}
