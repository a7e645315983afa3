package guestmem

import (
	"context"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
)

// HostModuleName is the import module guests use to reach native contracts.
const HostModuleName = "nativevm"

// EnvResolver returns the environment a guest call runs in.
type EnvResolver func(ctx context.Context) *env.Env

// Call performs one call described by guest memory. contractPtr points at a 16-byte address,
// fingerprintPtr at a 32-byte method fingerprint and argsPtr at an encoded ArgsLayout.
func Call(mem *Memory, e *env.Env, contractPtr, fingerprintPtr, argsPtr uint32, mc env.MethodContext) core.ExitCode {
	contract, err := mem.ReadAddress(contractPtr)
	if err != nil {
		slog.Debug("guest call rejected", "error", err)
		return core.ErrBadInput.ExitCode()
	}
	fingerprint, err := mem.ReadFingerprint(fingerprintPtr)
	if err != nil {
		slog.Debug("guest call rejected", "error", err)
		return core.ErrBadInput.ExitCode()
	}
	layout, err := mem.ReadArgsLayout(argsPtr)
	if err != nil {
		slog.Debug("guest call rejected", "error", err)
		return core.ErrBadInput.ExitCode()
	}
	args, refs, err := mem.ExternalArgs(layout)
	if err != nil {
		slog.Debug("guest call rejected", "error", err)
		return core.ErrBadInput.ExitCode()
	}

	if err := e.Call(contract, fingerprint, mc, args); err != nil {
		return core.ExitCodeOf(err)
	}
	if err := mem.CopyOutputs(refs, args.Outputs); err != nil {
		slog.Debug("guest call outputs rejected", "error", err)
		return core.ErrBadOutput.ExitCode()
	}
	return core.ExitOK
}

// Instantiate registers the host module exporting
//
//	call(contract_ptr, fingerprint_ptr, args_ptr, method_context i32) -> exit_code i64
//
// in r. The calling guest's memory is used for all pointers.
func Instantiate(ctx context.Context, r wazero.Runtime, resolve EnvResolver) (api.Module, error) {
	return r.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithParameterNames("contract_ptr", "fingerprint_ptr", "args_ptr", "method_context").
		WithResultNames("exit_code").
		WithFunc(func(ctx context.Context, m api.Module, contractPtr, fingerprintPtr, argsPtr, mc uint32) uint64 {
			if mc > uint32(env.Replace) || m.Memory() == nil {
				return uint64(core.ErrBadInput.ExitCode())
			}
			return uint64(Call(New(m.Memory()), resolve(ctx), contractPtr, fingerprintPtr, argsPtr, env.MethodContext(mc)))
		}).
		Export("call").
		Instantiate(ctx)
}
