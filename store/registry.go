package store

import (
	"fmt"
	"sort"
	"sync"
)

// StoreType names a snapshot store implementation
type StoreType string

const (
	// MemoryStoreType keeps snapshots in process memory
	MemoryStoreType StoreType = "memory"
	// DBStoreType keeps snapshots in an SQLite database through gorm
	DBStoreType StoreType = "db"
	// KVStoreType keeps snapshots in badger
	KVStoreType StoreType = "kv"
)

// Constructor creates a store from backend specific parameters
type Constructor func(params map[string]any) (SnapshotStore, error)

// Registry manages the snapshot store implementations
type Registry interface {
	// Register adds a new implementation
	Register(st StoreType, constructor Constructor) error
	// SetDefault sets the default store type
	SetDefault(st StoreType) error
	// Get opens a store of the given type
	Get(st StoreType, params map[string]any) (SnapshotStore, error)
	// DefaultStoreType returns the current default store type
	DefaultStoreType() StoreType
	// ListRegistered returns the registered store types in name order
	ListRegistered() []StoreType
}

type registry struct {
	mu        sync.RWMutex
	stores    map[StoreType]Constructor
	defaultSt StoreType
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry
func NewRegistry() Registry {
	return &registry{stores: make(map[StoreType]Constructor)}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(st StoreType, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[st]; exists {
		return fmt.Errorf("store type %s already registered", st)
	}
	r.stores[st] = constructor
	return nil
}

func (r *registry) SetDefault(st StoreType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[st]; !exists {
		return fmt.Errorf("store type %s not registered", st)
	}
	r.defaultSt = st
	return nil
}

func (r *registry) Get(st StoreType, params map[string]any) (SnapshotStore, error) {
	if st == "" {
		st = r.DefaultStoreType()
	}
	r.mu.RLock()
	constructor, exists := r.stores[st]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("store type %s not found", st)
	}
	if params == nil {
		params = make(map[string]any)
	}
	s, err := constructor(params)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", st, err)
	}
	return s, nil
}

func (r *registry) DefaultStoreType() StoreType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultSt == "" {
		return MemoryStoreType
	}
	return r.defaultSt
}

func (r *registry) ListRegistered() []StoreType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]StoreType, 0, len(r.stores))
	for st := range r.stores {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Register adds an implementation to the global registry
func Register(st StoreType, constructor Constructor) error {
	return GetRegistry().Register(st, constructor)
}

// SetDefault sets the default store type of the global registry
func SetDefault(st StoreType) error {
	return GetRegistry().SetDefault(st)
}

// Get opens a store from the global registry. An empty type selects the default.
func Get(st StoreType, params map[string]any) (SnapshotStore, error) {
	return GetRegistry().Get(st, params)
}

// ListRegistered lists the types of the global registry
func ListRegistered() []StoreType {
	return GetRegistry().ListRegistered()
}
