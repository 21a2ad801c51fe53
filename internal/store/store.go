// Package store persists the student and booking collections as opaque
// blobs in a key-value backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Keys of the two collections.
const (
	StudentsKey = "ds_students"
	BookingsKey = "ds_bookings"
)

// ErrNotFound is returned by Load when no blob is stored under the key.
var ErrNotFound = errors.New("store: key not found")

// Entry is one key/blob pair written by Save.
type Entry struct {
	Key  string
	Data []byte
}

// Store is a key-value blob store.
//
// Save writes all entries as one batch. Drivers that can do so (memory,
// redis) apply the batch atomically; the file driver stages every entry
// before renaming any of them into place.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, entries ...Entry) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("store: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}
