// Package system implements the contracts every shard is bootstrapped with: the code
// registry, the state registry and the address allocator.
//
// Each contract comes with call helpers that build the external arguments of its methods, so
// other contracts and the executor reach them through the regular dispatch path.
package system

import (
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
)

var (
	unitMetadata    = iotype.Metadata[iotype.Unit]()
	addressMetadata = iotype.Metadata[core.Address]()
	boolMetadata    = iotype.Metadata[iotype.Bool]()
)

// Contracts returns the system contracts in registration order.
func Contracts() []env.NativeContract {
	return []env.NativeContract{AddressAllocator(), Code(), State()}
}

func method(m *metadata.MethodBuilder, fn env.NativeMethod) (env.MethodEntry, metadata.MethodFingerprint) {
	blob := m.Metadata()
	return env.MethodEntry{Metadata: blob, Fn: fn}, metadata.MustFingerprint(blob)
}

func mainMetadata(state, slot, tmp []byte, entries ...env.MethodEntry) []byte {
	c := metadata.NewContract(state, slot, tmp)
	for _, e := range entries {
		c.Method(e.Metadata)
	}
	return c.Metadata()
}

func exit(err core.ContractError) core.ExitCode { return err.ExitCode() }
