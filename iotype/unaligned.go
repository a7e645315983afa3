package iotype

// Unaligned is a view of a trivial value stored at any byte offset.
type Unaligned[T Trivial] struct {
	raw []byte
}

// NewUnaligned fails if b is not exactly Size[T]() bytes.
func NewUnaligned[T Trivial](b []byte) (Unaligned[T], bool) {
	if uint32(len(b)) != Size[T]() {
		return Unaligned[T]{}, false
	}
	return Unaligned[T]{raw: b}, true
}

func (u Unaligned[T]) Get() T {
	v, _ := ReadUnaligned[T](u.raw)
	return v
}

func (u Unaligned[T]) Set(v T) {
	copy(u.raw, AsBytes(&v))
}

// UnalignedMetadata returns the type-shape metadata of Unaligned[T].
func UnalignedMetadata[T Trivial]() []byte {
	return append([]byte{byte(KindUnaligned)}, Metadata[T]()...)
}
