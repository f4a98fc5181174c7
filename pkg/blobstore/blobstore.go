// Package blobstore is the cache daemon's storage abstraction: a
// filesystem-backed blob store for the content itself, optionally
// fronted by a BadgerDB index that answers existence/size queries
// without a stat() round trip.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when path has no blob.
var ErrNotFound = errors.New("blobstore: not found")

// Store is the cache daemon's content-addressable-by-path backend.
type Store interface {
	// Open returns the blob's size and a reader for its content.
	// Callers must Close the reader.
	Open(ctx context.Context, path string) (size uint64, body io.ReadCloser, err error)

	// Put stores size bytes read from body under path. No part of the
	// request pipeline calls it; origin-served files are not written
	// back into the store.
	Put(ctx context.Context, path string, size uint64, body io.Reader) error

	// Stat reports a blob's size without opening it.
	Stat(ctx context.Context, path string) (size uint64, err error)

	Close() error
}
