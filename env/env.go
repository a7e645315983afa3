// Package env defines the environment a contract method runs in and the native calling
// convention between the executor and contract code.
package env

import (
	"fmt"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/metadata"
)

// MethodContext selects the context address of a callee.
type MethodContext uint8

const (
	// Keep passes the caller's context through.
	Keep MethodContext = iota
	// Reset clears the context to the null address.
	Reset
	// Replace uses the caller's own address as the context.
	Replace
)

func (m MethodContext) String() string {
	switch m {
	case Keep:
		return "keep"
	case Reset:
		return "reset"
	case Replace:
		return "replace"
	}
	return fmt.Sprintf("MethodContext(%d)", uint8(m))
}

// EnvState is the addressing part of an environment.
type EnvState struct {
	ShardIndex core.ShardIndex
	// OwnAddress is the contract being executed.
	OwnAddress core.Address
	// Context is the address on whose behalf the call chain acts.
	Context core.Address
	// Caller is the contract that made the call, null at the top level.
	Caller core.Address
}

// Derive returns the state of a call from s into contract.
func (s EnvState) Derive(contract core.Address, mc MethodContext) EnvState {
	next := EnvState{
		ShardIndex: s.ShardIndex,
		OwnAddress: contract,
		Caller:     s.OwnAddress,
	}
	switch mc {
	case Keep:
		next.Context = s.Context
	case Reset:
		next.Context = core.NullAddress
	case Replace:
		next.Context = s.OwnAddress
	}
	return next
}

// PreparedMethod is a call ready to be dispatched.
type PreparedMethod struct {
	Contract      core.Address
	Fingerprint   metadata.MethodFingerprint
	Args          *ExternalArgs
	MethodContext MethodContext
}

// ExecutorContext dispatches calls made through an Env.
type ExecutorContext interface {
	Call(prev EnvState, method *PreparedMethod) error
}

// Env is handed to contract methods that declare an environment argument.
type Env struct {
	state EnvState
	ctx   ExecutorContext
}

// New binds state to an executor context.
func New(state EnvState, ctx ExecutorContext) *Env {
	return &Env{state: state, ctx: ctx}
}

func (e *Env) State() EnvState { return e.state }

func (e *Env) ShardIndex() core.ShardIndex { return e.state.ShardIndex }

func (e *Env) OwnAddress() core.Address { return e.state.OwnAddress }

func (e *Env) Context() core.Address { return e.state.Context }

func (e *Env) Caller() core.Address { return e.state.Caller }

// Call invokes a method of another contract.
func (e *Env) Call(contract core.Address, fingerprint metadata.MethodFingerprint, mc MethodContext, args *ExternalArgs) error {
	return e.ctx.Call(e.state, &PreparedMethod{
		Contract:      contract,
		Fingerprint:   fingerprint,
		Args:          args,
		MethodContext: mc,
	})
}

// CallMany runs the methods in order and stops at the first failure.
func (e *Env) CallMany(methods ...*PreparedMethod) error {
	for _, m := range methods {
		if err := e.ctx.Call(e.state, m); err != nil {
			return err
		}
	}
	return nil
}
