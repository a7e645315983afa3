package executor

import (
	"log/slog"

	"github.com/govm-net/nativevm/api"
	"github.com/govm-net/nativevm/repository"
	"github.com/govm-net/nativevm/store"
)

// Option configures a Builder.
type Option func(*Builder)

// WithConfig replaces the default configuration. The shard index passed to NewBuilder wins
// over cfg.ShardIndex.
func WithConfig(cfg api.ExecutorConfig) Option {
	return func(b *Builder) {
		b.config = cfg
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithCatalog records registered contracts in catalog instead of a private one.
func WithCatalog(catalog *repository.Catalog) Option {
	return func(b *Builder) {
		if catalog != nil {
			b.catalog = catalog
		}
	}
}

// WithStore backs the executor with a snapshot store. Build restores a saved snapshot from it
// instead of running genesis, and saves the genesis state when the store is empty.
func WithStore(s store.SnapshotStore) Option {
	return func(b *Builder) {
		b.store = s
	}
}
