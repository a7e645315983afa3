package iotype

import "encoding/binary"

// VariableBytes is a byte container whose capacity is fixed by the caller's allocation and
// whose used size lives in a separate word, so both sides of a call can agree on the maximum
// while the callee reports how much it wrote.
type VariableBytes struct {
	bytes []byte
	size  *uint32
}

// NewVariableBytes wraps buf, whose length is the capacity. It fails if *size exceeds the capacity.
func NewVariableBytes(buf []byte, size *uint32) (*VariableBytes, bool) {
	if size == nil || uint64(*size) > uint64(len(buf)) || uint64(len(buf)) > uint64(^uint32(0)) {
		return nil, false
	}
	return &VariableBytes{bytes: buf, size: size}, true
}

// Get returns the used bytes.
func (v *VariableBytes) Get() []byte { return v.bytes[:*v.size] }

// GetMut returns the used bytes for in-place modification.
func (v *VariableBytes) GetMut() []byte { return v.bytes[:*v.size] }

func (v *VariableBytes) Capacity() uint32 { return uint32(len(v.bytes)) }

func (v *VariableBytes) Size() uint32 { return *v.size }

// CapacityBytes returns the whole backing region, including bytes past Size.
func (v *VariableBytes) CapacityBytes() []byte { return v.bytes }

// SetSize fails if n exceeds the capacity.
func (v *VariableBytes) SetSize(n uint32) bool {
	if n > v.Capacity() {
		return false
	}
	*v.size = n
	return true
}

// CopyFrom replaces the contents with src. It fails without changes if src does not fit.
func (v *VariableBytes) CopyFrom(src []byte) bool {
	if uint64(len(src)) > uint64(v.Capacity()) {
		return false
	}
	copy(v.bytes, src)
	*v.size = uint32(len(src))
	return true
}

// Append fails without changes if the result would exceed the capacity.
func (v *VariableBytes) Append(src []byte) bool {
	size := uint64(*v.size)
	if size+uint64(len(src)) > uint64(v.Capacity()) {
		return false
	}
	copy(v.bytes[size:], src)
	*v.size = uint32(size) + uint32(len(src))
	return true
}

// Truncate shrinks the size. It fails if n is larger than the current size.
func (v *VariableBytes) Truncate(n uint32) bool {
	if n > *v.size {
		return false
	}
	*v.size = n
	return true
}

var fixedVariableBytes = map[uint32]Kind{}

func init() {
	for kind, alloc := range variableBytesKinds {
		fixedVariableBytes[alloc] = kind
	}
}

// VariableBytesMetadata returns the type-shape metadata of a VariableBytes with the given
// recommended allocation.
func VariableBytesMetadata(recommended uint32) []byte {
	if kind, ok := fixedVariableBytes[recommended]; ok {
		return []byte{byte(kind)}
	}
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], recommended)
	switch {
	case recommended < 1<<8:
		return []byte{byte(KindVariableBytes8b), le[0]}
	case recommended < 1<<16:
		return []byte{byte(KindVariableBytes16b), le[0], le[1]}
	default:
		return append([]byte{byte(KindVariableBytes32b)}, le[:]...)
	}
}

// ByteArrayMetadata returns the type-shape metadata of [u8; n].
func ByteArrayMetadata(n uint32) []byte {
	for kind, size := range byteArrayKinds {
		if size == n {
			return []byte{byte(kind)}
		}
	}
	return ArrayMetadata(n, metaU8)
}

// ArrayMetadata returns the type-shape metadata of an array of n elements.
func ArrayMetadata(n uint32, element []byte) []byte {
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], n)
	var out []byte
	switch {
	case n < 1<<8:
		out = []byte{byte(KindArray8b), le[0]}
	case n < 1<<16:
		out = []byte{byte(KindArray16b), le[0], le[1]}
	default:
		out = append([]byte{byte(KindArray32b)}, le[:]...)
	}
	return append(out, element...)
}
