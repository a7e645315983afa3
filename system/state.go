package system

import (
	"bytes"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
)

const (
	// StateContractCode identifies the state registry implementation.
	StateContractCode = "nativevm/system/state@1"
	// RecommendedStateCapacity is the state size every contract can count on.
	RecommendedStateCapacity = 1024
)

var stateMetadata = iotype.VariableBytesMetadata(RecommendedStateCapacity)

var (
	stateInitialize, StateInitializeFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStateless, "initialize").
			Env(true).
			Slot("contract_state", true).
			Input("state", stateMetadata),
		initializeState,
	)
	stateWrite, StateWriteFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStateless, "write").
			Env(true).
			Slot("state", true).
			Input("new_state", stateMetadata),
		writeState,
	)
	stateCompareAndWrite, StateCompareAndWriteFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStateless, "compare_and_write").
			Env(true).
			Slot("state", true).
			Input("old_state", stateMetadata).
			Input("new_state", stateMetadata).
			Return(boolMetadata),
		compareAndWriteState,
	)
	stateRead, StateReadFingerprint = method(
		metadata.NewMethod(metadata.KindViewStateless, "read").
			Slot("contract_state", false).
			Output("state", stateMetadata),
		readState,
	)
	stateIsEmpty, StateIsEmptyFingerprint = method(
		metadata.NewMethod(metadata.KindViewStateless, "is_empty").
			Slot("contract_state", false).
			Return(boolMetadata),
		isEmptyState,
	)
)

// State is the state registry. The state of a contract lives in the slot {contract, SystemState}.
func State() env.NativeContract {
	entries := []env.MethodEntry{stateInitialize, stateWrite, stateCompareAndWrite, stateRead, stateIsEmpty}
	return env.NativeContract{
		Code:         StateContractCode,
		MainMetadata: mainMetadata(iotype.StructMetadata("State"), stateMetadata, unitMetadata, entries...),
		Methods:      entries,
	}
}

func initializeState(args *env.InternalArgs) core.ExitCode {
	if args.Slots[0].Data.Size() != 0 {
		return exit(core.ErrConflict)
	}
	return writeState(args)
}

// writeState lets a contract replace its own state.
func writeState(args *env.InternalArgs) core.ExitCode {
	slot := args.Slots[0]
	if args.Env.Caller() != slot.Owner {
		return exit(core.ErrForbidden)
	}
	if !slot.Data.CopyFrom(args.Inputs[0]) {
		return exit(core.ErrBadInput)
	}
	return core.ExitOK
}

func compareAndWriteState(args *env.InternalArgs) core.ExitCode {
	slot := args.Slots[0]
	if args.Env.Caller() != slot.Owner {
		return exit(core.ErrForbidden)
	}
	if !bytes.Equal(slot.Data.Get(), args.Inputs[0]) {
		if !env.WriteOutput(args.Outputs[0], iotype.NewBool(false)) {
			return exit(core.ErrBadOutput)
		}
		return core.ExitOK
	}
	if !slot.Data.CopyFrom(args.Inputs[1]) {
		return exit(core.ErrBadInput)
	}
	if !env.WriteOutput(args.Outputs[0], iotype.NewBool(true)) {
		return exit(core.ErrBadOutput)
	}
	return core.ExitOK
}

func readState(args *env.InternalArgs) core.ExitCode {
	if !args.Outputs[0].CopyFrom(args.Slots[0].Data.Get()) {
		return exit(core.ErrBadInput)
	}
	return core.ExitOK
}

func isEmptyState(args *env.InternalArgs) core.ExitCode {
	if !env.WriteOutput(args.Outputs[0], iotype.NewBool(args.Slots[0].Data.Size() == 0)) {
		return exit(core.ErrBadOutput)
	}
	return core.ExitOK
}

func stateArgs(address core.Address, inputs ...[]byte) *env.ExternalArgs {
	return &env.ExternalArgs{Slots: []core.Address{address}, Inputs: inputs}
}

// StateInitialize sets the first state of address. It fails with Conflict if a state exists.
func StateInitialize(e *env.Env, mc env.MethodContext, address core.Address, state []byte) error {
	return e.Call(core.SystemState, StateInitializeFingerprint, mc, stateArgs(address, state))
}

// StateWrite replaces the state of address, which must be the calling contract.
func StateWrite(e *env.Env, mc env.MethodContext, address core.Address, state []byte) error {
	return e.Call(core.SystemState, StateWriteFingerprint, mc, stateArgs(address, state))
}

// StateCompareAndWrite replaces the state of address only if it currently equals old.
func StateCompareAndWrite(e *env.Env, mc env.MethodContext, address core.Address, old, state []byte) (bool, error) {
	args := stateArgs(address, old, state)
	out := env.NewOutput(iotype.Size[iotype.Bool]())
	args.Outputs = []*env.OutputArg{out}
	if err := e.Call(core.SystemState, StateCompareAndWriteFingerprint, mc, args); err != nil {
		return false, err
	}
	return readBool(out)
}

// StateRead returns the state of address.
func StateRead(e *env.Env, mc env.MethodContext, address core.Address) ([]byte, error) {
	args := stateArgs(address)
	out := env.NewOutput(RecommendedStateCapacity)
	args.Outputs = []*env.OutputArg{out}
	if err := e.Call(core.SystemState, StateReadFingerprint, mc, args); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// StateIsEmpty reports whether address has no state yet.
func StateIsEmpty(e *env.Env, mc env.MethodContext, address core.Address) (bool, error) {
	args := stateArgs(address)
	out := env.NewOutput(iotype.Size[iotype.Bool]())
	args.Outputs = []*env.OutputArg{out}
	if err := e.Call(core.SystemState, StateIsEmptyFingerprint, mc, args); err != nil {
		return false, err
	}
	return readBool(out)
}

func readBool(out *env.OutputArg) (bool, error) {
	v, ok := env.ReadOutput[iotype.Bool](out)
	if !ok {
		return false, core.ErrBadOutput
	}
	return v.Get(), nil
}
