package blobstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	badger "github.com/dgraph-io/badger/v4"
)

// IndexedStore fronts a backing Store with a BadgerDB index mapping
// path to size, so Stat is answered from an LSM-tree lookup instead of
// a filesystem stat() call once the path is indexed. Put and Open
// delegate to the backing store for the content itself, and Open does
// not consult the index at all; only Stat is accelerated.
type IndexedStore struct {
	backing Store
	db      *badger.DB
}

// NewIndexedStore opens (creating if needed) a Badger index at
// indexPath in front of backing.
func NewIndexedStore(backing Store, indexPath string) (*IndexedStore, error) {
	opts := badger.DefaultOptions(indexPath).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open index at %s: %w", indexPath, err)
	}
	return &IndexedStore{backing: backing, db: db}, nil
}

func (s *IndexedStore) Open(ctx context.Context, path string) (uint64, io.ReadCloser, error) {
	size, body, err := s.backing.Open(ctx, path)
	if err != nil {
		return 0, nil, err
	}
	return size, body, nil
}

func (s *IndexedStore) Put(ctx context.Context, path string, size uint64, body io.Reader) error {
	if err := s.backing.Put(ctx, path, size, body); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], size)
		return txn.Set([]byte(path), buf[:])
	})
}

func (s *IndexedStore) Stat(ctx context.Context, path string) (uint64, error) {
	var size uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("blobstore: corrupt index entry for %s", path)
			}
			size = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if errors.Is(err, ErrNotFound) {
		// Index miss: fall back to the backing store and backfill so
		// subsequent lookups hit the index.
		size, err = s.backing.Stat(ctx, path)
		if err != nil {
			return 0, err
		}
		_ = s.db.Update(func(txn *badger.Txn) error {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], size)
			return txn.Set([]byte(path), buf[:])
		})
		return size, nil
	}
	if err != nil {
		return 0, fmt.Errorf("blobstore: index lookup %s: %w", path, err)
	}
	return size, nil
}

func (s *IndexedStore) Close() error {
	backingErr := s.backing.Close()
	dbErr := s.db.Close()
	if backingErr != nil {
		return backingErr
	}
	return dbErr
}
