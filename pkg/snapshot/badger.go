package snapshot

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/wirecache/internal/logger"
)

// BadgerStore is a shared badger database holding the snapshots of every
// persistent namespace under one directory. Each namespace gets its own
// key, so saves from different namespaces never conflict.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the snapshot database at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger snapshot store at %s: %w", dir, err)
	}
	logger.Debug("Badger snapshot store opened", "dir", dir)
	return &BadgerStore{db: db}, nil
}

// OpenBadgerInMemory opens a badger instance backed by memory only.
// Used by tests; nothing survives Close.
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger snapshot store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Snapshotter returns the per-namespace view writing under the given name.
func (s *BadgerStore) Snapshotter(name string) Snapshotter {
	return &badgerSnapshotter{db: s.db, key: []byte("snapshot/" + name)}
}

// Close releases the underlying database. Pending writes are flushed.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerSnapshotter struct {
	db  *badger.DB
	key []byte
}

func (b *badgerSnapshotter) Save(_ context.Context, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("badger snapshot save: %w", err)
	}
	return nil
}

func (b *badgerSnapshotter) Load(_ context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("badger snapshot load: %w", err)
	}
	return data, nil
}
