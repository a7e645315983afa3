// Package executor builds the per-shard native executor and dispatches contract calls.
//
// A NativeExecutor owns the committed slots of one shard. Every top-level call, emulated
// transaction or read-only session runs in its own root scope that is committed on success
// and discarded on failure. Calls serialize on the executor.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govm-net/nativevm/alignedbuf"
	"github.com/govm-net/nativevm/api"
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/repository"
	"github.com/govm-net/nativevm/security"
	"github.com/govm-net/nativevm/slots"
	"github.com/govm-net/nativevm/store"
)

// NativeExecutor runs native contracts of one shard.
type NativeExecutor struct {
	shard   core.ShardIndex
	config  api.ExecutorConfig
	logger  *slog.Logger
	methods map[methodKey]*methodDetails
	catalog *repository.Catalog
	store   store.SnapshotStore
	limiter *security.ResourceLimiter

	mu    sync.Mutex
	slots *slots.Slots
}

func (e *NativeExecutor) ShardIndex() core.ShardIndex { return e.shard }

func (e *NativeExecutor) Config() api.ExecutorConfig { return e.config }

// transaction runs fn in a fresh root scope. The scope is discarded if fn fails or panics.
func (e *NativeExecutor) transaction(readOnly bool, fn func(c *callContext) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope := e.slots.NewNested(readOnly)
	monitor := e.limiter.StartMonitoring()
	defer monitor.Stop()

	committed := false
	defer func() {
		if !committed {
			scope.Discard()
		}
	}()

	c := &callContext{exec: e, scope: scope, allowEnvMutation: !readOnly, monitor: monitor}
	if err := fn(c); err != nil {
		return err
	}
	committed = true
	scope.Commit()
	e.logger.Debug("transaction committed", "gas_used", monitor.Gas.Used())
	return nil
}

// topLevel runs every call of an Env from Env or NullEnv as its own transaction.
type topLevel struct {
	exec *NativeExecutor
}

func (t topLevel) Call(prev env.EnvState, method *env.PreparedMethod) error {
	return t.exec.transaction(false, func(c *callContext) error {
		return c.Call(prev, method)
	})
}

// Env returns an environment acting as caller, wrapped in context. Each call made through it
// is a separate transaction.
func (e *NativeExecutor) Env(context, caller core.Address) *env.Env {
	return env.New(env.EnvState{ShardIndex: e.shard, OwnAddress: caller, Context: context}, topLevel{exec: e})
}

// NullEnv is Env with null context and caller.
func (e *NativeExecutor) NullEnv() *env.Env {
	return e.Env(core.NullAddress, core.NullAddress)
}

// TransactionEmulate runs fn as if contract itself sent a transaction. All calls made through
// the Env passed to fn commit together, or not at all if fn returns an error. The Env must
// not be used after fn returns, and fn must not use other Envs of the same executor.
func (e *NativeExecutor) TransactionEmulate(contract core.Address, fn func(*env.Env) error) error {
	return e.transaction(false, func(c *callContext) error {
		return fn(env.New(env.EnvState{ShardIndex: e.shard, OwnAddress: contract, Context: contract}, c))
	})
}

// WithEnvRo runs fn with an environment that can only call view methods.
func (e *NativeExecutor) WithEnvRo(fn func(*env.Env) error) error {
	return e.transaction(true, func(c *callContext) error {
		return fn(env.New(env.EnvState{ShardIndex: e.shard}, c))
	})
}

// UseSlot returns the committed value of a slot, empty if it does not exist. The buffer is a
// counted reference of its own; converting it with IntoOwned copies while the slot still
// holds the data. Release it when done.
func (e *NativeExecutor) UseSlot(key slots.Key) alignedbuf.Shared {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots.UseSlot(key)
}

// Slot returns a copy of the committed value of a slot.
func (e *NativeExecutor) Slot(key slots.Key) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.slots.Get(key)
	if !ok {
		return nil, false
	}
	defer buf.Release()
	return bytes.Clone(buf.Bytes()), true
}

// Snapshot copies all committed slots.
func (e *NativeExecutor) Snapshot() map[slots.Key][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots.Snapshot()
}

// Entries returns the committed slots in key order.
func (e *NativeExecutor) Entries() []store.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := e.slots.Iter()
	defer slots.ReleaseEntries(items)
	entries := make([]store.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, store.Entry{
			Owner:    it.Key.Owner,
			Contract: it.Key.Contract,
			Data:     bytes.Clone(it.Buffer.Bytes()),
		})
	}
	return entries
}

// Digest hashes the committed slots.
func (e *NativeExecutor) Digest() [32]byte {
	return store.Digest(e.Entries())
}

// Contracts lists the registered contract packages.
func (e *NativeExecutor) Contracts() []*repository.ContractRecord {
	return e.catalog.List()
}

// Catalog is the registry of contract packages the executor was built with.
func (e *NativeExecutor) Catalog() *repository.Catalog { return e.catalog }

// SaveSnapshot writes the committed slots to s.
func (e *NativeExecutor) SaveSnapshot(ctx context.Context, s store.SnapshotStore) error {
	entries := e.Entries()
	if err := s.Save(ctx, entries); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	e.logger.Info("snapshot saved", "shard", e.shard, "slots", len(entries))
	return nil
}

// Persist saves the committed slots to the store the executor was built with.
func (e *NativeExecutor) Persist(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("executor of shard %s has no store", e.shard)
	}
	return e.SaveSnapshot(ctx, e.store)
}

// LoadSnapshot replaces the committed slots with the snapshot in s.
func (e *NativeExecutor) LoadSnapshot(ctx context.Context, s store.SnapshotStore) error {
	loaded, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(loaded) == 0 {
		return errEmptySnapshot
	}
	entries := make([]slots.Entry, 0, len(loaded))
	for _, l := range loaded {
		entries = append(entries, slots.Entry{
			Key:    slots.Key{Owner: l.Owner, Contract: l.Contract},
			Buffer: alignedbuf.SharedFromBytes(l.Data),
		})
	}

	e.mu.Lock()
	e.slots = slots.New(entries)
	e.mu.Unlock()
	e.logger.Info("snapshot loaded", "shard", e.shard, "slots", len(entries))
	return nil
}
