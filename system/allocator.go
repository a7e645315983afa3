package system

import (
	"github.com/holiman/uint256"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
)

// AllocatorContractCode identifies the address allocator implementation.
const AllocatorContractCode = "nativevm/system/address-allocator@1"

// AllocatorState is the state of an address allocator.
type AllocatorState struct {
	NextAddress iotype.U128
	MaxAddress  iotype.U128
}

var allocatorStateMetadata = iotype.StructMetadata("AddressAllocator",
	iotype.Field{Name: "next_address", Metadata: iotype.Metadata[iotype.U128]()},
	iotype.Field{Name: "max_address", Metadata: iotype.Metadata[iotype.U128]()},
)

func (AllocatorState) IoTypeMetadata() []byte { return allocatorStateMetadata }

var (
	allocatorNew, AllocatorNewFingerprint = method(
		metadata.NewMethod(metadata.KindInit, "new").
			Env(false).
			InitResult(),
		newAllocator,
	)
	allocatorAllocate, AllocateAddressFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStatefulRw, "allocate_address").
			Env(true).
			Return(addressMetadata),
		allocateAddress,
	)
)

// AddressAllocator hands out contract addresses of one shard. It lives at
// core.SystemAddressAllocator(shard).
func AddressAllocator() env.NativeContract {
	return env.NativeContract{
		Code:         AllocatorContractCode,
		MainMetadata: mainMetadata(allocatorStateMetadata, unitMetadata, unitMetadata, allocatorNew, allocatorAllocate),
		Methods:      []env.MethodEntry{allocatorNew, allocatorAllocate},
	}
}

// NewAllocatorState returns the initial state of the allocator at self. The range excludes
// self and ends one short of the next shard's allocator.
func NewAllocatorState(self core.Address) AllocatorState {
	base := self.Uint256()
	span := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	next := new(uint256.Int).AddUint64(base, 1)
	last := new(uint256.Int).Add(base, span.SubUint64(span, 1))
	return AllocatorState{NextAddress: toU128(next), MaxAddress: toU128(last)}
}

func toU128(v *uint256.Int) iotype.U128 { return iotype.NewU128(v[1], v[0]) }

func newAllocator(args *env.InternalArgs) core.ExitCode {
	st := NewAllocatorState(args.Env.OwnAddress())
	if !args.State.CopyFrom(iotype.AsBytes(&st)) {
		return exit(core.ErrBadOutput)
	}
	return core.ExitOK
}

// allocateAddress is reserved to the code registry, which stores code at the new address.
func allocateAddress(args *env.InternalArgs) core.ExitCode {
	if args.Env.Caller() != core.SystemCode {
		return exit(core.ErrForbidden)
	}
	st, ok := iotype.FromBytesMut[AllocatorState](args.State.GetMut())
	if !ok {
		return exit(core.ErrBadInput)
	}
	next := st.NextAddress.Uint256()
	if next.Cmp(st.MaxAddress.Uint256()) >= 0 {
		return exit(core.ErrForbidden)
	}
	st.NextAddress = toU128(new(uint256.Int).AddUint64(next, 1))
	if !env.WriteOutput(args.Outputs[0], core.AddressFromUint256(next)) {
		return exit(core.ErrBadOutput)
	}
	return core.ExitOK
}

// AllocatorNew initializes the allocator at address.
func AllocatorNew(e *env.Env, mc env.MethodContext, address core.Address) error {
	return e.Call(address, AllocatorNewFingerprint, mc, &env.ExternalArgs{})
}

// AllocateAddress allocates the next contract address. Only the code registry may call it.
func AllocateAddress(e *env.Env, mc env.MethodContext, allocator core.Address) (core.Address, error) {
	out := env.NewOutput(iotype.Size[core.Address]())
	if err := e.Call(allocator, AllocateAddressFingerprint, mc, &env.ExternalArgs{Outputs: []*env.OutputArg{out}}); err != nil {
		return core.NullAddress, err
	}
	address, ok := env.ReadOutput[core.Address](out)
	if !ok {
		return core.NullAddress, core.ErrBadOutput
	}
	return address, nil
}
