package iotype

import "unsafe"

// Trivial is implemented by fixed-size value types whose memory can be reinterpreted as raw bytes.
//
// Implementations must not contain pointers or implicit padding, and every bit pattern of their
// memory must be a valid value.
type Trivial interface {
	IoTypeMetadata() []byte
}

// Size returns the number of bytes a value of T occupies.
func Size[T Trivial]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

func alignOf[T Trivial]() uintptr {
	var zero T
	return unsafe.Alignof(zero)
}

// FromBytes interprets b as a value of T. b must be exactly Size[T]() bytes and suitably aligned.
func FromBytes[T Trivial](b []byte) (*T, bool) {
	if uint32(len(b)) != Size[T]() {
		return nil, false
	}
	if len(b) == 0 {
		return new(T), true
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(b)))%alignOf[T]() != 0 {
		return nil, false
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), true
}

// FromBytesMut is FromBytes for callers that intend to write through the returned pointer.
func FromBytesMut[T Trivial](b []byte) (*T, bool) {
	return FromBytes[T](b)
}

// ReadUnaligned copies a value of T out of the first Size[T]() bytes of b regardless of alignment.
func ReadUnaligned[T Trivial](b []byte) (T, bool) {
	var v T
	n := Size[T]()
	if uint32(len(b)) < n {
		return v, false
	}
	copy(AsBytesMut(&v), b[:n])
	return v, true
}

// AsBytes returns the raw memory of v.
func AsBytes[T Trivial](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), Size[T]())
}

// AsBytesMut returns the raw memory of v for writing.
func AsBytesMut[T Trivial](v *T) []byte {
	return AsBytes(v)
}
