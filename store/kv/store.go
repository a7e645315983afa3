// Package kv is a snapshot store backed by badger.
package kv

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/govm-net/nativevm/store"
)

var slotPrefix = []byte("slot/")

func init() {
	if err := store.Register(store.KVStoreType, NewStore); err != nil {
		panic(err)
	}
}

// Store keeps one key per slot under a common prefix.
type Store struct {
	mu sync.RWMutex
	db *badger.DB
}

// NewStore opens badger in memory unless params["dir"] names a directory.
func NewStore(params map[string]any) (store.SnapshotStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if dir, ok := params["dir"].(string); ok && dir != "" {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil).WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, entries []store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return store.ErrClosed
	}
	if err := s.db.DropPrefix(slotPrefix); err != nil {
		return fmt.Errorf("failed to drop previous snapshot: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set(store.Key(slotPrefix, e.Owner, e.Contract), e.Data); err != nil {
			return fmt.Errorf("failed to write slot: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, store.ErrClosed
	}

	var entries []store.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = slotPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			owner, contract, ok := store.ParseKey(slotPrefix, item.Key())
			if !ok {
				return fmt.Errorf("invalid slot key %x", item.Key())
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, store.Entry{Owner: owner, Contract: contract, Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	store.SortEntries(entries)
	return entries, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return store.ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}
