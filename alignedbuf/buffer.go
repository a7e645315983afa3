// Package alignedbuf provides 16-byte aligned, reference-counted byte buffers.
//
// Every allocation reserves one leading 16-byte slot for the reference count, so sharing a
// buffer never needs a second allocation. Backing memory comes from go-buffer-pool.
package alignedbuf

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	pool "github.com/libp2p/go-buffer-pool"
)

// Alignment of the data pointer of every buffer.
const Alignment = 16

// headerSize is the slot that holds the reference count.
const headerSize = Alignment

type allocation struct {
	raw []byte
	// off is the offset of the header within raw; data starts at off+headerSize.
	off      int
	capacity uint32
	static   bool
}

var emptyAllocation = newAllocation(0, true)

func newAllocation(capacity uint32, static bool) *allocation {
	raw := pool.Get(headerSize + int(capacity) + Alignment - 1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int((Alignment - base%Alignment) % Alignment)
	a := &allocation{raw: raw, off: off, capacity: capacity, static: static}
	a.count().Store(1)
	return a
}

func (a *allocation) count() *atomic.Uint32 {
	return (*atomic.Uint32)(unsafe.Pointer(&a.raw[a.off]))
}

func (a *allocation) data() []byte {
	start := a.off + headerSize
	return a.raw[start : start+int(a.capacity) : start+int(a.capacity)]
}

func (a *allocation) pointer() uintptr {
	return uintptr(unsafe.Pointer(&a.raw[a.off+headerSize-1])) + 1
}

func (a *allocation) release() {
	if a.static {
		return
	}
	if a.count().Add(^uint32(0)) == 0 {
		pool.Put(a.raw)
		a.raw = nil
	}
}

func checkLen(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		panic(fmt.Sprintf("too many bytes %d", n))
	}
	return uint32(n)
}

// Owned is an exclusively owned, growable aligned buffer.
type Owned struct {
	alloc *allocation
	len   uint32
}

// WithCapacity allocates an empty buffer.
func WithCapacity(capacity uint32) *Owned {
	if capacity == 0 {
		return &Owned{alloc: emptyAllocation}
	}
	return &Owned{alloc: newAllocation(capacity, false)}
}

// FromBytes allocates a buffer holding a copy of b. It panics if b is longer than math.MaxUint32.
func FromBytes(b []byte) *Owned {
	o := WithCapacity(checkLen(len(b)))
	o.CopyFromSlice(b)
	return o
}

// Bytes returns the data in [0, Len()). The slice is valid until the next modification.
func (o *Owned) Bytes() []byte { return o.alloc.data()[:o.len] }

// CapacityBytes returns the whole allocated region, used to write data before SetLen.
func (o *Owned) CapacityBytes() []byte { return o.alloc.data() }

func (o *Owned) Len() uint32 { return o.len }

func (o *Owned) Capacity() uint32 { return o.alloc.capacity }

func (o *Owned) IsEmpty() bool { return o.len == 0 }

// DataPointer identifies the allocation, used to check reuse.
func (o *Owned) DataPointer() uintptr { return o.alloc.pointer() }

// EnsureCapacity reallocates if the capacity is below capacity, preserving contents.
func (o *Owned) EnsureCapacity(capacity uint32) {
	if capacity <= o.Capacity() {
		return
	}
	next := newAllocation(capacity, false)
	copy(next.data(), o.Bytes())
	o.replace(next)
}

// CopyFromSlice replaces the contents with b, reallocating to exactly len(b) if needed.
// It panics if b is longer than math.MaxUint32.
func (o *Owned) CopyFromSlice(b []byte) {
	n := checkLen(len(b))
	if n > o.Capacity() {
		o.replace(newAllocation(n, false))
	}
	copy(o.alloc.data(), b)
	o.len = n
}

// Append adds b to the end, growing to max(newLen, 2*capacity) if needed.
// It returns false without changes if the length would not fit in a uint32.
func (o *Owned) Append(b []byte) bool {
	newLen := uint64(o.len) + uint64(len(b))
	if newLen > math.MaxUint32 {
		return false
	}
	if uint32(newLen) > o.Capacity() {
		grown := max(newLen, 2*uint64(o.Capacity()))
		if grown > math.MaxUint32 {
			grown = math.MaxUint32
		}
		next := newAllocation(uint32(grown), false)
		copy(next.data(), o.Bytes())
		o.replace(next)
	}
	copy(o.alloc.data()[o.len:], b)
	o.len = uint32(newLen)
	return true
}

// SetLen sets the length of useful data. The caller must have initialized n bytes.
// It panics if n exceeds the capacity.
func (o *Owned) SetLen(n uint32) {
	if n > o.Capacity() {
		panic(fmt.Sprintf("too many bytes %d > %d", n, o.Capacity()))
	}
	o.len = n
}

// Clone copies the contents into a new allocation of the same capacity.
func (o *Owned) Clone() *Owned {
	c := WithCapacity(o.Capacity())
	c.CopyFromSlice(o.Bytes())
	return c
}

// IntoShared converts the buffer into a shared one with a count of 1.
// The receiver is left empty.
func (o *Owned) IntoShared() Shared {
	s := Shared{alloc: o.alloc, len: o.len}
	if !o.alloc.static {
		o.alloc.count().Store(1)
	}
	o.alloc, o.len = emptyAllocation, 0
	return s
}

func (o *Owned) replace(next *allocation) {
	old := o.alloc
	o.alloc = next
	old.release()
}

// Shared is an immutable view of an aligned buffer. Copies must be made with Clone so the
// reference count stays accurate.
type Shared struct {
	alloc *allocation
	len   uint32
}

// Empty returns the static empty buffer. Its count is pinned at 1.
func Empty() Shared {
	return Shared{alloc: emptyAllocation}
}

// SharedFromBytes allocates a shared buffer holding a copy of b.
func SharedFromBytes(b []byte) Shared {
	if len(b) == 0 {
		return Empty()
	}
	return FromBytes(b).IntoShared()
}

func (s Shared) allocation() *allocation {
	if s.alloc == nil {
		return emptyAllocation
	}
	return s.alloc
}

// Clone increments the reference count.
func (s Shared) Clone() Shared {
	a := s.allocation()
	if !a.static {
		a.count().Add(1)
	}
	return Shared{alloc: a, len: s.len}
}

// Release drops this reference. The value must not be used afterwards.
func (s Shared) Release() {
	s.allocation().release()
}

// IntoOwned reuses the allocation when this is the only reference, else copies.
func (s Shared) IntoOwned() *Owned {
	a := s.allocation()
	if a.static {
		return &Owned{alloc: emptyAllocation}
	}
	if a.count().Load() == 1 {
		return &Owned{alloc: a, len: s.len}
	}
	o := FromBytes(s.Bytes())
	a.release()
	return o
}

func (s Shared) Bytes() []byte { return s.allocation().data()[:s.len] }

func (s Shared) Len() uint32 { return s.len }

func (s Shared) IsEmpty() bool { return s.len == 0 }

// Capacity of the underlying allocation.
func (s Shared) Capacity() uint32 { return s.allocation().capacity }

func (s Shared) DataPointer() uintptr { return s.allocation().pointer() }

// RefCount reports the current number of references.
func (s Shared) RefCount() uint32 { return s.allocation().count().Load() }
