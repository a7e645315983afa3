package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/govm-net/nativevm/api"
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/metadata"
	"github.com/govm-net/nativevm/repository"
	"github.com/govm-net/nativevm/security"
	"github.com/govm-net/nativevm/store"
	"github.com/govm-net/nativevm/system"
)

type methodKey struct {
	code        string
	fingerprint metadata.MethodFingerprint
}

// methodDetails is everything dispatch needs to know about a registered method.
type methodDetails struct {
	name          string
	kind          metadata.Kind
	args          []*metadata.Argument
	stateCapacity uint32
	slotCapacity  uint32
	tmpCapacity   uint32
	fn            env.NativeMethod
}

type registration struct {
	code    string
	main    []byte
	trait   []byte
	methods []env.MethodEntry
}

// Builder collects contracts and builds a NativeExecutor for one shard.
type Builder struct {
	shard     core.ShardIndex
	contracts []registration
	config    api.ExecutorConfig
	logger    *slog.Logger
	catalog   *repository.Catalog
	store     store.SnapshotStore
}

// NewBuilder returns a builder that already holds the system contracts.
func NewBuilder(shard core.ShardIndex, opts ...Option) *Builder {
	b := &Builder{
		shard:   shard,
		config:  api.DefaultExecutorConfig(),
		logger:  slog.Default(),
		catalog: repository.NewCatalog(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.config.ShardIndex = uint32(shard)
	for _, c := range system.Contracts() {
		b.WithContract(c)
	}
	return b
}

// WithContract registers the methods of c.
func (b *Builder) WithContract(c env.NativeContract) *Builder {
	b.contracts = append(b.contracts, registration{code: c.Code, main: c.MainMetadata, methods: c.Methods})
	return b
}

// WithContractTrait registers c's implementation of a trait. The trait methods share c's
// code and capacities.
func (b *Builder) WithContractTrait(c env.NativeContract, t env.NativeTrait) *Builder {
	b.contracts = append(b.contracts, registration{code: c.Code, main: c.MainMetadata, trait: t.Metadata, methods: t.Methods})
	return b
}

// capacities reads the state, slot and tmp capacities from the first item of main metadata.
func capacities(r registration) (state, slot, tmp uint32, err error) {
	if len(r.main) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrContractMetadataNotFound, r.code)
	}
	item, err := metadata.NewDecoder(r.main).DecodeNext()
	if err != nil {
		return 0, 0, 0, &ContractMetadataDecodingError{Code: r.code, Err: err}
	}
	if item.Kind == metadata.KindTrait {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrExpectedContractMetadataFoundTrait, r.code)
	}
	return item.StateDetails.RecommendedCapacity, item.SlotDetails.RecommendedCapacity, item.TmpDetails.RecommendedCapacity, nil
}

func checkTrait(r registration) error {
	item, err := metadata.NewDecoder(r.trait).DecodeNext()
	if err != nil {
		return &ContractMetadataDecodingError{Code: r.code, Err: err}
	}
	if item.Kind != metadata.KindTrait {
		return &ContractMetadataDecodingError{Code: r.code, Err: fmt.Errorf("trait metadata holds a %s", item.Kind)}
	}
	if err := item.Methods.SkipMethods(); err != nil {
		return &ContractMetadataDecodingError{Code: r.code, Err: err}
	}
	return nil
}

type catalogEntry struct {
	code  string
	main  []byte
	blobs [][]byte
}

// methodTable validates every registration. The catalog is only updated once all of them
// are valid.
func (b *Builder) methodTable() (map[methodKey]*methodDetails, error) {
	methods := make(map[methodKey]*methodDetails)
	pending := make([]catalogEntry, 0, len(b.contracts))
	for _, r := range b.contracts {
		if len(r.methods) == 0 {
			continue
		}
		if r.trait != nil {
			if err := checkTrait(r); err != nil {
				return nil, err
			}
		}
		stateCap, slotCap, tmpCap, err := capacities(r)
		if err != nil {
			return nil, err
		}
		if _, ok := metadata.Compact(r.main, true); !ok {
			return nil, &ContractMetadataDecodingError{Code: r.code, Err: errors.New("metadata does not compact")}
		}

		blobs := make([][]byte, 0, len(r.methods))
		for _, m := range r.methods {
			fp, err := metadata.Fingerprint(m.Metadata)
			if err != nil {
				return nil, &ContractMetadataDecodingError{Code: r.code, Err: err}
			}
			method, args, err := metadata.DecodeMethod(m.Metadata)
			if err != nil {
				return nil, &ContractMetadataDecodingError{Code: r.code, Err: err}
			}
			key := methodKey{code: r.code, fingerprint: fp}
			if _, exists := methods[key]; exists {
				return nil, &DuplicateMethodInContractError{Code: r.code, Fingerprint: fp}
			}
			methods[key] = &methodDetails{
				name:          method.Name,
				kind:          method.Kind,
				args:          args,
				stateCapacity: stateCap,
				slotCapacity:  slotCap,
				tmpCapacity:   tmpCap,
				fn:            m.Fn,
			}
			blobs = append(blobs, m.Metadata)
		}
		pending = append(pending, catalogEntry{code: r.code, main: r.main, blobs: blobs})
	}

	for _, p := range pending {
		if _, err := b.catalog.Register(p.code, p.main, p.blobs); err != nil {
			return nil, &ContractMetadataDecodingError{Code: p.code, Err: err}
		}
	}
	return methods, nil
}

// Build validates the registered contracts and returns an executor holding the genesis state
// of the shard, or the snapshot of the configured store.
func (b *Builder) Build() (*NativeExecutor, error) {
	if err := api.ValidateConfig(&b.config); err != nil {
		return nil, err
	}
	methods, err := b.methodTable()
	if err != nil {
		return nil, err
	}

	e := &NativeExecutor{
		shard:   b.shard,
		config:  b.config,
		logger:  b.logger,
		methods: methods,
		catalog: b.catalog,
		store:   b.store,
		limiter: security.NewResourceLimiter(b.config.MaxCallDepth, b.config.MaxGas),
	}

	ctx := context.Background()
	if b.store != nil {
		restored, err := e.restore(ctx)
		if err != nil {
			return nil, err
		}
		if restored {
			return e, nil
		}
	}

	if err := e.genesis(); err != nil {
		return nil, &FailedToDeploySystemContractsError{Err: err}
	}
	if b.store != nil {
		if err := e.SaveSnapshot(ctx, b.store); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// restore loads a saved snapshot. It reports false when the store is empty.
func (e *NativeExecutor) restore(ctx context.Context) (bool, error) {
	err := e.LoadSnapshot(ctx, e.store)
	if errors.Is(err, errEmptySnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var errEmptySnapshot = errors.New("executor: snapshot is empty")
