package guestmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/executor"
	"github.com/govm-net/nativevm/guestmem"
	"github.com/govm-net/nativevm/system"
)

// memoryOnly exports a single page of memory.
var memoryOnly = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
}

// forwarder imports nativevm.call and exports it as run, along with its memory.
var forwarder = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i32, i32, i32, i32) -> i64
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7e,
	// import nativevm.call
	0x02, 0x11, 0x01, 0x08, 0x6e, 0x61, 0x74, 0x69, 0x76, 0x65, 0x76, 0x6d, 0x04, 0x63, 0x61, 0x6c, 0x6c, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export memory, run
	0x07, 0x10, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x03, 0x72, 0x75, 0x6e, 0x00, 0x01,
	// run: local.get 0..3, call 0
	0x0a, 0x0e, 0x01, 0x0c, 0x00, 0x20, 0x00, 0x20, 0x01, 0x20, 0x02, 0x20, 0x03, 0x10, 0x00, 0x0b,
}

func setupRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })
	return ctx, r
}

func setupMemory(t *testing.T) *guestmem.Memory {
	t.Helper()
	ctx, r := setupRuntime(t)
	mod, err := r.Instantiate(ctx, memoryOnly)
	require.NoError(t, err)
	return guestmem.New(mod.Memory())
}

// echo copies every input into the output with the same index.
type echo struct{ calls int }

func (e *echo) Call(_ env.EnvState, m *env.PreparedMethod) error {
	e.calls++
	for i, in := range m.Args.Inputs {
		out := m.Args.Outputs[i]
		if len(in) > len(out.Buffer) {
			return core.ErrBadOutput
		}
		out.Size = uint32(copy(out.Buffer, in))
	}
	return nil
}

func TestReadWrite(t *testing.T) {
	mem := setupMemory(t)

	require.NoError(t, mem.WriteBytes(10, []byte("hello")))
	data, err := mem.ReadBytes(10, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, mem.WriteUint32(100, 0xdeadbeef))
	v, err := mem.ReadUint32(100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)

	address := core.AddressFromUint64(42)
	require.NoError(t, mem.WriteBytes(200, address.Bytes()))
	got, err := mem.ReadAddress(200)
	require.NoError(t, err)
	assert.Equal(t, address, got)

	_, err = mem.ReadBytes(65535, 2)
	assert.ErrorIs(t, err, guestmem.ErrOutOfBounds)
	assert.ErrorIs(t, mem.WriteBytes(65536, []byte{1}), guestmem.ErrOutOfBounds)
	_, err = mem.ReadUint32(65534)
	assert.ErrorIs(t, err, guestmem.ErrOutOfBounds)
}

func TestArgsLayout(t *testing.T) {
	mem := setupMemory(t)
	layout := guestmem.ArgsLayout{SlotsPtr: 1, NumSlots: 2, InputsPtr: 3, NumInputs: 4, OutputsPtr: 5, NumOutputs: 6}
	encoded := layout.Encode()
	assert.Len(t, encoded, guestmem.ArgsLayoutSize)

	require.NoError(t, mem.WriteBytes(0, encoded))
	got, err := mem.ReadArgsLayout(0)
	require.NoError(t, err)
	assert.Equal(t, layout, got)
}

func writeWords(t *testing.T, mem *guestmem.Memory, offset uint32, words ...uint32) {
	t.Helper()
	for i, w := range words {
		require.NoError(t, mem.WriteUint32(offset+uint32(i)*4, w))
	}
}

func TestExternalArgsAndOutputs(t *testing.T) {
	mem := setupMemory(t)
	slot := core.AddressFromUint64(7)
	require.NoError(t, mem.WriteBytes(0, slot.Bytes()))
	require.NoError(t, mem.WriteBytes(100, []byte("abc")))
	writeWords(t, mem, 200, 100, 3)      // input {ptr, size}
	writeWords(t, mem, 300, 400, 500, 8) // output {ptr, size_ptr, capacity}

	layout := guestmem.ArgsLayout{SlotsPtr: 0, NumSlots: 1, InputsPtr: 200, NumInputs: 1, OutputsPtr: 300, NumOutputs: 1}
	args, refs, err := mem.ExternalArgs(layout)
	require.NoError(t, err)
	assert.Equal(t, []core.Address{slot}, args.Slots)
	assert.Equal(t, [][]byte{[]byte("abc")}, args.Inputs)
	require.Len(t, args.Outputs, 1)
	assert.Len(t, args.Outputs[0].Buffer, 8)

	copy(args.Outputs[0].Buffer, "xyz")
	args.Outputs[0].Size = 3
	require.NoError(t, mem.CopyOutputs(refs, args.Outputs))
	data, err := mem.ReadBytes(400, 3)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(data))
	size, err := mem.ReadUint32(500)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), size)

	assert.Error(t, mem.CopyOutputs(refs, nil))
	args.Outputs[0].Size = 9
	assert.Error(t, mem.CopyOutputs(refs, args.Outputs))

	// inputs pointing outside the memory
	writeWords(t, mem, 200, 65535, 3)
	_, _, err = mem.ExternalArgs(layout)
	assert.ErrorIs(t, err, guestmem.ErrOutOfBounds)

	_, _, err = mem.ExternalArgs(guestmem.ArgsLayout{NumSlots: core.MaxTotalMethodArgs + 1})
	assert.Error(t, err)

	// arrays running past 4GiB are rejected instead of wrapping to low memory
	_, _, err = mem.ExternalArgs(guestmem.ArgsLayout{InputsPtr: 0xfffffff8, NumInputs: 2})
	assert.ErrorIs(t, err, guestmem.ErrOutOfBounds)
	_, _, err = mem.ExternalArgs(guestmem.ArgsLayout{OutputsPtr: 0xfffffffc, NumOutputs: 1})
	assert.ErrorIs(t, err, guestmem.ErrOutOfBounds)
}

func TestCall(t *testing.T) {
	mem := setupMemory(t)
	ctxStub := &echo{}
	e := env.New(env.EnvState{}, ctxStub)

	require.NoError(t, mem.WriteBytes(0, core.AddressFromUint64(5).Bytes()))
	require.NoError(t, mem.WriteBytes(100, []byte("ping")))
	writeWords(t, mem, 200, 100, 4)
	writeWords(t, mem, 300, 400, 500, 16)
	layout := guestmem.ArgsLayout{InputsPtr: 200, NumInputs: 1, OutputsPtr: 300, NumOutputs: 1}
	require.NoError(t, mem.WriteBytes(600, layout.Encode()))

	code := guestmem.Call(mem, e, 0, 32, 600, env.Keep)
	assert.Equal(t, core.ExitOK, code)
	assert.Equal(t, 1, ctxStub.calls)
	data, err := mem.ReadBytes(400, 4)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(data))

	// bad pointers never reach the executor
	code = guestmem.Call(mem, e, 65535, 32, 600, env.Keep)
	assert.Equal(t, core.ErrBadInput.ExitCode(), code)
	assert.Equal(t, 1, ctxStub.calls)
}

func TestGuestCallsExecutor(t *testing.T) {
	ctx, r := setupRuntime(t)
	exec, err := executor.NewBuilder(0).Build()
	require.NoError(t, err)

	_, err = guestmem.Instantiate(ctx, r, func(context.Context) *env.Env { return exec.NullEnv() })
	require.NoError(t, err)
	mod, err := r.Instantiate(ctx, forwarder)
	require.NoError(t, err)
	mem := guestmem.New(mod.Memory())

	// State.is_empty(allocator)
	allocator := core.SystemAddressAllocator(0)
	fp := system.StateIsEmptyFingerprint
	require.NoError(t, mem.WriteBytes(0, core.SystemState.Bytes()))
	require.NoError(t, mem.WriteBytes(16, fp[:]))
	require.NoError(t, mem.WriteBytes(64, allocator.Bytes()))
	writeWords(t, mem, 96, 200, 204, 1)
	layout := guestmem.ArgsLayout{SlotsPtr: 64, NumSlots: 1, OutputsPtr: 96, NumOutputs: 1}
	require.NoError(t, mem.WriteBytes(128, layout.Encode()))

	run := mod.ExportedFunction("run")
	require.NotNil(t, run)
	results, err := run.Call(ctx, 0, 16, 128, uint64(env.Keep))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(core.ExitOK), results[0])

	size, err := mem.ReadUint32(204)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), size)
	empty, err := mem.ReadBytes(200, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, empty)

	// an unknown method context is rejected by the host
	results, err = run.Call(ctx, 0, 16, 128, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(core.ErrBadInput.ExitCode()), results[0])

}
