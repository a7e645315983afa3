package executor

import (
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
)

// A small stateful contract used to drive the executor.
const counterCode = "test/counter@1"

var (
	u64Metadata     = iotype.Metadata[iotype.U64]()
	addressMetadata = iotype.Metadata[core.Address]()

	errCounterFailed, _ = core.NewCustomError(1000)
)

func counterMethod(m *metadata.MethodBuilder, fn env.NativeMethod) (env.MethodEntry, metadata.MethodFingerprint) {
	blob := m.Metadata()
	return env.MethodEntry{Metadata: blob, Fn: fn}, metadata.MustFingerprint(blob)
}

var (
	counterNew, counterNewFp = counterMethod(
		metadata.NewMethod(metadata.KindInit, "new").Input("start", u64Metadata).InitResult(),
		func(args *env.InternalArgs) core.ExitCode {
			start, ok := env.Input[iotype.U64](args, 0)
			if !ok {
				return core.ErrBadInput.ExitCode()
			}
			if !env.WriteOutput(args.State, start) {
				return core.ErrBadOutput.ExitCode()
			}
			return core.ExitOK
		},
	)
	counterIncrement, counterIncrementFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStatefulRw, "increment").Input("by", u64Metadata),
		func(args *env.InternalArgs) core.ExitCode {
			by, ok := env.Input[iotype.U64](args, 0)
			if !ok {
				return core.ErrBadInput.ExitCode()
			}
			v, ok := iotype.FromBytesMut[iotype.U64](args.State.GetMut())
			if !ok {
				return core.ErrBadInput.ExitCode()
			}
			*v += by
			return core.ExitOK
		},
	)
	// counterBroken writes the state and then fails.
	counterBroken, counterBrokenFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStatefulRw, "broken"),
		func(args *env.InternalArgs) core.ExitCode {
			v, _ := iotype.FromBytesMut[iotype.U64](args.State.GetMut())
			*v = 999
			return errCounterFailed.ExitCode()
		},
	)
	counterGet, counterGetFp = counterMethod(
		metadata.NewMethod(metadata.KindViewStateful, "get").Return(u64Metadata),
		func(args *env.InternalArgs) core.ExitCode {
			v, ok := iotype.ReadUnaligned[iotype.U64](args.State.Get())
			if !ok || !env.WriteOutput(args.Outputs[0], v) {
				return core.ErrBadOutput.ExitCode()
			}
			return core.ExitOK
		},
	)
	// counterNote writes an input into the slot owned by the first slot argument.
	counterNote, counterNoteFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStateless, "note").
			Slot("note", true).
			Input("text", iotype.VariableBytesMetadata(64)),
		func(args *env.InternalArgs) core.ExitCode {
			if !args.Slots[0].Data.CopyFrom(args.Inputs[0]) {
				return core.ErrBadInput.ExitCode()
			}
			return core.ExitOK
		},
	)
	counterReadNote, counterReadNoteFp = counterMethod(
		metadata.NewMethod(metadata.KindViewStateless, "read_note").
			Slot("note", false).
			Output("text", iotype.VariableBytesMetadata(64)),
		func(args *env.InternalArgs) core.ExitCode {
			if !args.Outputs[0].CopyFrom(args.Slots[0].Data.Get()) {
				return core.ErrBadInput.ExitCode()
			}
			return core.ExitOK
		},
	)
	// counterScratch keeps a running total in tmp and copies it into the state.
	counterScratch, counterScratchFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStatefulRw, "scratch").Tmp("total", true).Input("by", u64Metadata),
		func(args *env.InternalArgs) core.ExitCode {
			by, _ := env.Input[iotype.U64](args, 0)
			tmp := args.Tmp.Data
			var total iotype.U64
			if tmp.Size() != 0 {
				total, _ = iotype.ReadUnaligned[iotype.U64](tmp.Get())
			}
			total += by
			if !env.WriteOutput(tmp, total) || !env.WriteOutput(args.State, total) {
				return core.ErrBadOutput.ExitCode()
			}
			return core.ExitOK
		},
	)
	// counterRecurse calls itself until the call fails and reports the depth it reached.
	counterRecurse, counterRecurseFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStateless, "recurse").Env(true).Return(u64Metadata),
		func(args *env.InternalArgs) core.ExitCode {
			out := env.NewOutput(8)
			depth := iotype.U64(1)
			err := args.Env.Call(args.Env.OwnAddress(), metadata.MustFingerprint(recurseMetadata), env.Keep, &env.ExternalArgs{Outputs: []*env.OutputArg{out}})
			if err == nil {
				inner, _ := env.ReadOutput[iotype.U64](out)
				depth += inner
			}
			if !env.WriteOutput(args.Outputs[0], depth) {
				return core.ErrBadOutput.ExitCode()
			}
			return core.ExitOK
		},
	)
	// counterIncrementVia asks another counter to increment and returns its new value.
	counterIncrementVia, counterIncrementViaFp = counterMethod(
		metadata.NewMethod(metadata.KindUpdateStateless, "increment_via").
			Env(true).
			Input("other", addressMetadata).
			Return(u64Metadata),
		func(args *env.InternalArgs) core.ExitCode {
			other, ok := env.Input[core.Address](args, 0)
			if !ok {
				return core.ErrBadInput.ExitCode()
			}
			if err := counterIncrementCall(args.Env, other, 1); err != nil {
				return core.ExitCodeOf(err)
			}
			v, err := counterGetCall(args.Env, other)
			if err != nil {
				return core.ExitCodeOf(err)
			}
			if !env.WriteOutput(args.Outputs[0], iotype.U64(v)) {
				return core.ErrBadOutput.ExitCode()
			}
			return core.ExitOK
		},
	)
)

var recurseMetadata = metadata.NewMethod(metadata.KindUpdateStateless, "recurse").Env(true).Return(u64Metadata).Metadata()

var counterMethods = []env.MethodEntry{
	counterNew, counterIncrement, counterBroken, counterGet, counterNote, counterReadNote,
	counterScratch, counterRecurse, counterIncrementVia,
}

func counterContract() env.NativeContract {
	c := metadata.NewContract(iotype.StructMetadata("Counter",
		iotype.Field{Name: "value", Metadata: u64Metadata},
	), iotype.VariableBytesMetadata(64), u64Metadata)
	for _, m := range counterMethods {
		c.Method(m.Metadata)
	}
	return env.NativeContract{Code: counterCode, MainMetadata: c.Metadata(), Methods: counterMethods}
}

var versionMethod, versionFp = counterMethod(
	metadata.NewMethod(metadata.KindViewStateless, "version").Return(u64Metadata),
	func(args *env.InternalArgs) core.ExitCode {
		if !env.WriteOutput(args.Outputs[0], iotype.U64(7)) {
			return core.ErrBadOutput.ExitCode()
		}
		return core.ExitOK
	},
)

func versionedTrait() env.NativeTrait {
	return env.NativeTrait{
		Metadata: metadata.NewTrait("Versioned").Method(versionMethod.Metadata).Metadata(),
		Methods:  []env.MethodEntry{versionMethod},
	}
}

func u64Input(v uint64) []byte {
	x := iotype.U64(v)
	return append([]byte(nil), iotype.AsBytes(&x)...)
}

func counterInitCall(e *env.Env, address core.Address, start uint64) error {
	return e.Call(address, counterNewFp, env.Keep, &env.ExternalArgs{Inputs: [][]byte{u64Input(start)}})
}

func counterIncrementCall(e *env.Env, address core.Address, by uint64) error {
	return e.Call(address, counterIncrementFp, env.Keep, &env.ExternalArgs{Inputs: [][]byte{u64Input(by)}})
}

func counterGetCall(e *env.Env, address core.Address) (uint64, error) {
	out := env.NewOutput(8)
	if err := e.Call(address, counterGetFp, env.Keep, &env.ExternalArgs{Outputs: []*env.OutputArg{out}}); err != nil {
		return 0, err
	}
	v, ok := env.ReadOutput[iotype.U64](out)
	if !ok {
		return 0, core.ErrBadOutput
	}
	return uint64(v), nil
}
