// Package guestmem moves call arguments between a WebAssembly guest's linear memory and the
// native calling convention, so guests running under wazero can call native contracts.
//
// A guest describes a call with an ArgsLayout: three arrays of little-endian u32 words that
// point at the slot addresses, the inputs and the output buffers it owns.
package guestmem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/metadata"
)

// ErrOutOfBounds is returned for accesses outside the guest memory.
var ErrOutOfBounds = errors.New("guestmem: access out of bounds")

var errTooManyArgs = errors.New("guestmem: too many arguments")

const (
	addressSize     = 16
	fingerprintSize = 32
	// ArgsLayoutSize is the encoded size of an ArgsLayout.
	ArgsLayoutSize = 6 * 4
	// inputRefSize is {ptr, size}, outputRefSize is {ptr, size_ptr, capacity}.
	inputRefSize  = 2 * 4
	outputRefSize = 3 * 4
)

// Memory wraps the memory of one guest instance.
type Memory struct {
	mem api.Memory
}

func New(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

// ReadBytes copies size bytes at offset.
func (m *Memory) ReadBytes(offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	data, ok := m.mem.Read(offset, size)
	if !ok {
		return nil, fmt.Errorf("%w: read %d bytes at %d", ErrOutOfBounds, size, offset)
	}
	return append([]byte(nil), data...), nil
}

// WriteBytes copies data to offset.
func (m *Memory) WriteBytes(offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("%w: write %d bytes at %d", ErrOutOfBounds, len(data), offset)
	}
	return nil
}

func (m *Memory) ReadUint32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("%w: read u32 at %d", ErrOutOfBounds, offset)
	}
	return v, nil
}

func (m *Memory) WriteUint32(offset, v uint32) error {
	if !m.mem.WriteUint32Le(offset, v) {
		return fmt.Errorf("%w: write u32 at %d", ErrOutOfBounds, offset)
	}
	return nil
}

func (m *Memory) ReadAddress(offset uint32) (core.Address, error) {
	data, err := m.ReadBytes(offset, addressSize)
	if err != nil {
		return core.NullAddress, err
	}
	return core.AddressFromBytes(data)
}

func (m *Memory) ReadFingerprint(offset uint32) (metadata.MethodFingerprint, error) {
	var fp metadata.MethodFingerprint
	data, err := m.ReadBytes(offset, fingerprintSize)
	if err != nil {
		return fp, err
	}
	copy(fp[:], data)
	return fp, nil
}

// ArgsLayout locates the external arguments of a call in guest memory.
type ArgsLayout struct {
	// SlotsPtr points at NumSlots 16-byte addresses.
	SlotsPtr, NumSlots uint32
	// InputsPtr points at NumInputs {ptr, size} pairs.
	InputsPtr, NumInputs uint32
	// OutputsPtr points at NumOutputs {ptr, size_ptr, capacity} triples.
	OutputsPtr, NumOutputs uint32
}

// Encode returns the guest representation of l.
func (l ArgsLayout) Encode() []byte {
	out := make([]byte, 0, ArgsLayoutSize)
	for _, v := range []uint32{l.SlotsPtr, l.NumSlots, l.InputsPtr, l.NumInputs, l.OutputsPtr, l.NumOutputs} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func (m *Memory) ReadArgsLayout(offset uint32) (ArgsLayout, error) {
	data, err := m.ReadBytes(offset, ArgsLayoutSize)
	if err != nil {
		return ArgsLayout{}, err
	}
	w := func(i int) uint32 { return binary.LittleEndian.Uint32(data[4*i:]) }
	return ArgsLayout{
		SlotsPtr: w(0), NumSlots: w(1),
		InputsPtr: w(2), NumInputs: w(3),
		OutputsPtr: w(4), NumOutputs: w(5),
	}, nil
}

// element returns the offset of the i-th size-byte element of the array at base. The whole
// element must lie below 4GiB.
func element(base, i, size uint32) (uint32, error) {
	offset := uint64(base) + uint64(i)*uint64(size)
	if offset+uint64(size) > math.MaxUint32+1 {
		return 0, fmt.Errorf("%w: element %d of the array at %d", ErrOutOfBounds, i, base)
	}
	return uint32(offset), nil
}

// OutputRef is where an output goes back to in guest memory.
type OutputRef struct {
	Ptr, SizePtr, Capacity uint32
}

// ExternalArgs copies the arguments described by layout out of guest memory. Outputs get
// host buffers of the guest's capacities.
func (m *Memory) ExternalArgs(layout ArgsLayout) (*env.ExternalArgs, []OutputRef, error) {
	if uint64(layout.NumSlots)+uint64(layout.NumInputs)+uint64(layout.NumOutputs) > core.MaxTotalMethodArgs {
		return nil, nil, errTooManyArgs
	}
	args := &env.ExternalArgs{}
	for i := uint32(0); i < layout.NumSlots; i++ {
		offset, err := element(layout.SlotsPtr, i, addressSize)
		if err != nil {
			return nil, nil, err
		}
		address, err := m.ReadAddress(offset)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read slot %d: %w", i, err)
		}
		args.Slots = append(args.Slots, address)
	}

	for i := uint32(0); i < layout.NumInputs; i++ {
		ref, err := element(layout.InputsPtr, i, inputRefSize)
		if err != nil {
			return nil, nil, err
		}
		ptr, err := m.ReadUint32(ref)
		if err != nil {
			return nil, nil, err
		}
		size, err := m.ReadUint32(ref + 4)
		if err != nil {
			return nil, nil, err
		}
		data, err := m.ReadBytes(ptr, size)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read input %d: %w", i, err)
		}
		args.Inputs = append(args.Inputs, data)
	}

	refs := make([]OutputRef, 0, layout.NumOutputs)
	for i := uint32(0); i < layout.NumOutputs; i++ {
		base, err := element(layout.OutputsPtr, i, outputRefSize)
		if err != nil {
			return nil, nil, err
		}
		var words [3]uint32
		for j := range words {
			v, err := m.ReadUint32(base + uint32(j)*4)
			if err != nil {
				return nil, nil, err
			}
			words[j] = v
		}
		ref := OutputRef{Ptr: words[0], SizePtr: words[1], Capacity: words[2]}
		if ref.Capacity > core.MaxCodeSize {
			return nil, nil, fmt.Errorf("guestmem: output %d capacity %d too large", i, ref.Capacity)
		}
		refs = append(refs, ref)
		args.Outputs = append(args.Outputs, env.NewOutput(ref.Capacity))
	}
	return args, refs, nil
}

// CopyOutputs writes what the callee produced back to the guest, data first and then the
// size word.
func (m *Memory) CopyOutputs(refs []OutputRef, outputs []*env.OutputArg) error {
	if len(refs) != len(outputs) {
		return fmt.Errorf("guestmem: %d output refs for %d outputs", len(refs), len(outputs))
	}
	for i, ref := range refs {
		out := outputs[i]
		if out.Size > ref.Capacity {
			return fmt.Errorf("guestmem: output %d overflows its buffer", i)
		}
		if err := m.WriteBytes(ref.Ptr, out.Bytes()); err != nil {
			return fmt.Errorf("failed to write output %d: %w", i, err)
		}
		if err := m.WriteUint32(ref.SizePtr, out.Size); err != nil {
			return fmt.Errorf("failed to write output %d size: %w", i, err)
		}
	}
	return nil
}
