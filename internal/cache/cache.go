// Package cache persists raw HTTP response bodies in a bbolt file so a
// session is downloaded at most once.
package cache

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pitwall-labs/lapcast/pkg/errors"
)

var responsesBucket = []byte("responses")

// Cache is a key/value store for response bodies keyed by request URL.
type Cache struct {
	db *bolt.DB
}

// Open opens or creates the cache file at path, creating parent
// directories. bbolt holds an exclusive lock on the file until Close; Open
// gives up after a second if another process holds it.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create cache directory %s", dir)
		}
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(responsesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create responses bucket")
	}

	return &Cache{db: db}, nil
}

// Get returns a copy of the body stored under key.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(responsesBucket).Get([]byte(key)); v != nil {
			body = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "read cache entry %s", key)
	}
	return body, body != nil, nil
}

// Put stores body under key, replacing any previous value.
func (c *Cache) Put(key string, body []byte) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(responsesBucket).Put([]byte(key), body)
	})
	return errors.Wrapf(err, "write cache entry %s", key)
}

// Len reports the number of stored entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(responsesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.db.Path()
}

// Close releases the file lock.
func (c *Cache) Close() error {
	return c.db.Close()
}
