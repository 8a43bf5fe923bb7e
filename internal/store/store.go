// internal/store/store.go
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a local key-value store backed by a single BoltDB file.
// Logical collections map to buckets; values are JSON-encoded. A value
// that fails to decode is treated as absent and logged, never surfaced
// as an error to the caller.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store file at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the value at bucket/key into out. Returns false if the key
// is absent or the stored value is malformed.
func (s *Store) Get(bucket, key string, out any) bool {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		slog.Warn("store read failed", "bucket", bucket, "key", key, "error", err)
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("store value malformed, ignoring", "bucket", bucket, "key", key, "error", err)
		return false
	}
	return true
}

// Put JSON-encodes v and writes it at bucket/key.
func (s *Store) Put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Delete removes the value at bucket/key. Missing keys are not an error.
func (s *Store) Delete(bucket, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// update exposes a read-modify-write transaction to sibling types in this
// package so a collection is always rewritten in the same transaction it
// was read in.
func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}
