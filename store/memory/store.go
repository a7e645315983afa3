// Package memory is a snapshot store held in process memory.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/govm-net/nativevm/store"
)

func init() {
	if err := store.Register(store.MemoryStoreType, NewStore); err != nil {
		panic(err)
	}
}

// Store keeps a deep copy of the last saved snapshot.
type Store struct {
	mu      sync.RWMutex
	entries []store.Entry
	closed  bool
}

// NewStore takes no parameters.
func NewStore(map[string]any) (store.SnapshotStore, error) {
	return &Store{}, nil
}

func cloneEntries(entries []store.Entry) []store.Entry {
	out := make([]store.Entry, len(entries))
	for i, e := range entries {
		out[i] = store.Entry{Owner: e.Owner, Contract: e.Contract, Data: bytes.Clone(e.Data)}
	}
	return out
}

func (s *Store) Save(ctx context.Context, entries []store.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.entries = cloneEntries(entries)
	store.SortEntries(s.entries)
	return nil
}

func (s *Store) Load(ctx context.Context) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	return cloneEntries(s.entries), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
