package system

import (
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
)

// CodeContractCode identifies the code registry implementation.
const CodeContractCode = "nativevm/system/code@1"

var codeMetadata = iotype.VariableBytesMetadata(core.MaxCodeSize)

var (
	codeDeploy, CodeDeployFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStateless, "deploy").
			Env(true).
			Input("code", codeMetadata).
			Return(addressMetadata),
		deployCode,
	)
	codeStore, CodeStoreFingerprint = method(
		metadata.NewMethod(metadata.KindUpdateStateless, "store").
			Env(true).
			Slot("contract_code", true).
			Input("new_code", codeMetadata),
		storeCode,
	)
	codeRead, CodeReadFingerprint = method(
		metadata.NewMethod(metadata.KindViewStateless, "read").
			Slot("contract_code", false).
			Output("code", codeMetadata),
		readCode,
	)
)

// Code is the code registry. The code of a contract lives in the slot {contract, SystemCode}.
func Code() env.NativeContract {
	return env.NativeContract{
		Code:         CodeContractCode,
		MainMetadata: mainMetadata(iotype.StructMetadata("Code"), codeMetadata, unitMetadata, codeDeploy, codeStore, codeRead),
		Methods:      []env.MethodEntry{codeDeploy, codeStore, codeRead},
	}
}

// deployCode allocates an address for a new contract and stores its code.
func deployCode(args *env.InternalArgs) core.ExitCode {
	e := args.Env
	code := args.Inputs[0]
	if len(code) > core.MaxCodeSize {
		return exit(core.ErrBadInput)
	}
	address, err := AllocateAddress(e, env.Replace, core.SystemAddressAllocator(e.ShardIndex()))
	if err != nil {
		return core.ExitCodeOf(err)
	}
	if err := CodeStore(e, env.Replace, address, code); err != nil {
		return core.ExitCodeOf(err)
	}
	if !env.WriteOutput(args.Outputs[0], address) {
		return exit(core.ErrBadOutput)
	}
	return core.ExitOK
}

// storeCode replaces the code of a contract. Only the contract itself, the registry or a
// top-level caller may do that.
func storeCode(args *env.InternalArgs) core.ExitCode {
	e := args.Env
	slot := args.Slots[0]
	caller := e.Caller()
	if !(caller.IsNull() || caller == e.OwnAddress() || caller == slot.Owner) {
		return exit(core.ErrForbidden)
	}
	code := args.Inputs[0]
	if len(code) > core.MaxCodeSize || !slot.Data.CopyFrom(code) {
		return exit(core.ErrBadInput)
	}
	return core.ExitOK
}

func readCode(args *env.InternalArgs) core.ExitCode {
	if !args.Outputs[0].CopyFrom(args.Slots[0].Data.Get()) {
		return exit(core.ErrBadInput)
	}
	return core.ExitOK
}

// CodeStore calls Code.store for address.
func CodeStore(e *env.Env, mc env.MethodContext, address core.Address, code []byte) error {
	return e.Call(core.SystemCode, CodeStoreFingerprint, mc, &env.ExternalArgs{
		Slots:  []core.Address{address},
		Inputs: [][]byte{code},
	})
}

// CodeRead returns the code stored for address.
func CodeRead(e *env.Env, mc env.MethodContext, address core.Address) ([]byte, error) {
	out := env.NewOutput(core.MaxCodeSize)
	err := e.Call(core.SystemCode, CodeReadFingerprint, mc, &env.ExternalArgs{
		Slots:   []core.Address{address},
		Outputs: []*env.OutputArg{out},
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// CodeDeploy deploys code at a freshly allocated address.
func CodeDeploy(e *env.Env, mc env.MethodContext, code []byte) (core.Address, error) {
	out := env.NewOutput(iotype.Size[core.Address]())
	err := e.Call(core.SystemCode, CodeDeployFingerprint, mc, &env.ExternalArgs{
		Inputs:  [][]byte{code},
		Outputs: []*env.OutputArg{out},
	})
	if err != nil {
		return core.NullAddress, err
	}
	address, ok := env.ReadOutput[core.Address](out)
	if !ok {
		return core.NullAddress, core.ErrBadOutput
	}
	return address, nil
}
