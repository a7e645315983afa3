package env

import (
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/iotype"
)

// OutputArg is caller-provided memory for one output. The callee reports the bytes it wrote
// through Size.
type OutputArg struct {
	Buffer []byte
	Size   uint32
}

// NewOutput allocates an output with the given capacity.
func NewOutput(capacity uint32) *OutputArg {
	return &OutputArg{Buffer: make([]byte, capacity)}
}

// Bytes returns what the callee wrote.
func (o *OutputArg) Bytes() []byte { return o.Buffer[:o.Size] }

// ExternalArgs are the arguments a caller supplies, each list in declaration order.
// Env, tmp and state arguments are supplied by the executor. Outputs end with the return
// value, if the method has one. The final output of an init method is the new state and is
// not part of Outputs.
type ExternalArgs struct {
	Slots   []core.Address
	Inputs  [][]byte
	Outputs []*OutputArg
}

// SlotArg is a slot resolved by the executor.
type SlotArg struct {
	Owner    core.Address
	Data     *iotype.VariableBytes
	Writable bool
}

// InternalArgs is what a native method receives. Read-only data must not be modified.
type InternalArgs struct {
	// Env is nil if the method does not take an environment.
	Env         *Env
	EnvWritable bool
	// State is the contract state of stateful methods, or the empty buffer an init method
	// writes the initial state to.
	State         *iotype.VariableBytes
	StateWritable bool
	Tmp           *SlotArg
	Slots         []SlotArg
	Inputs        [][]byte
	Outputs       []*iotype.VariableBytes
}

// NativeMethod is the compiled body of a contract method.
type NativeMethod func(args *InternalArgs) core.ExitCode

// Input reads a trivial value from input i, which need not be aligned.
func Input[T iotype.Trivial](args *InternalArgs, i int) (T, bool) {
	var zero T
	if i >= len(args.Inputs) || len(args.Inputs[i]) != int(iotype.Size[T]()) {
		return zero, false
	}
	return iotype.ReadUnaligned[T](args.Inputs[i])
}

// WriteOutput stores v into out.
func WriteOutput[T iotype.Trivial](out *iotype.VariableBytes, v T) bool {
	return out.CopyFrom(iotype.AsBytes(&v))
}

// ReadOutput decodes a trivial value written by a callee.
func ReadOutput[T iotype.Trivial](out *OutputArg) (T, bool) {
	var zero T
	if out.Size != iotype.Size[T]() {
		return zero, false
	}
	return iotype.ReadUnaligned[T](out.Bytes())
}

// MethodEntry registers one native method.
type MethodEntry struct {
	Metadata []byte
	Fn       NativeMethod
}

// NativeContract is everything the executor needs to dispatch into a contract's code.
type NativeContract struct {
	// Code identifies the contract implementation. It is what the code registry stores.
	Code         string
	MainMetadata []byte
	Methods      []MethodEntry
}

// NativeTrait is a contract's implementation of a trait. Metadata is the trait's own metadata
// and Methods are the contract's bodies for the trait methods.
type NativeTrait struct {
	Metadata []byte
	Methods  []MethodEntry
}
