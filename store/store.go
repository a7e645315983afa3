// Package store persists snapshots of an executor's committed slots.
//
// Backends register themselves in init, the way the context backends of a chain node do, and
// are selected by name from configuration.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/minio/sha256-simd"

	"github.com/govm-net/nativevm/core"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("store: closed")

// Entry is one committed slot.
type Entry struct {
	Owner    core.Address
	Contract core.Address
	Data     []byte
}

// SnapshotStore keeps the latest saved snapshot. Save replaces the previous one.
type SnapshotStore interface {
	Save(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, error)
	Close() error
}

// SortEntries orders entries by (owner, contract).
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Owner.Compare(entries[j].Owner); c != 0 {
			return c < 0
		}
		return entries[i].Contract.Compare(entries[j].Contract) < 0
	})
}

// Key encodes the (owner, contract) pair of an entry as a fixed-width key under prefix.
func Key(prefix []byte, owner, contract core.Address) []byte {
	key := make([]byte, 0, len(prefix)+2*len(owner))
	key = append(key, prefix...)
	key = append(key, owner[:]...)
	return append(key, contract[:]...)
}

// ParseKey is the inverse of Key.
func ParseKey(prefix, key []byte) (owner, contract core.Address, ok bool) {
	if !bytes.HasPrefix(key, prefix) || len(key) != len(prefix)+2*len(owner) {
		return owner, contract, false
	}
	key = key[len(prefix):]
	copy(owner[:], key)
	copy(contract[:], key[len(owner):])
	return owner, contract, true
}

// Digest hashes a snapshot independently of entry order. Two executors with the same
// committed slots have the same digest.
func Digest(entries []Entry) [32]byte {
	sorted := append([]Entry(nil), entries...)
	SortEntries(sorted)
	h := sha256.New()
	var n [4]byte
	for _, e := range sorted {
		h.Write(e.Owner[:])
		h.Write(e.Contract[:])
		binary.LittleEndian.PutUint32(n[:], uint32(len(e.Data)))
		h.Write(n[:])
		h.Write(e.Data)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
