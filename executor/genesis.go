package executor

import (
	"fmt"

	"github.com/govm-net/nativevm/alignedbuf"
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/slots"
	"github.com/govm-net/nativevm/system"
)

// genesis writes the system contracts of the shard. Only the code registry's own code is
// seeded directly, everything else goes through regular calls made on its behalf.
func (e *NativeExecutor) genesis() error {
	allocator := core.SystemAddressAllocator(e.shard)

	e.slots = slots.New([]slots.Entry{{
		Key:    slots.Key{Owner: core.SystemCode, Contract: core.SystemCode},
		Buffer: alignedbuf.SharedFromBytes([]byte(system.CodeContractCode)),
	}})

	setup := e.slots.NewNested(false)
	for _, address := range []core.Address{allocator, core.SystemState} {
		if !setup.AddNewContract(address) {
			setup.Discard()
			return fmt.Errorf("failed to register system contract %s", address)
		}
	}
	setup.Commit()

	err := e.TransactionEmulate(core.SystemCode, func(en *env.Env) error {
		if err := system.CodeStore(en, env.Keep, core.SystemState, []byte(system.StateContractCode)); err != nil {
			return fmt.Errorf("failed to store state contract code: %w", err)
		}
		if err := system.CodeStore(en, env.Keep, allocator, []byte(system.AllocatorContractCode)); err != nil {
			return fmt.Errorf("failed to store allocator code: %w", err)
		}
		if err := system.AllocatorNew(en, env.Keep, allocator); err != nil {
			return fmt.Errorf("failed to initialize allocator: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Debug("genesis written", "shard", e.shard, "allocator", allocator)
	return nil
}
