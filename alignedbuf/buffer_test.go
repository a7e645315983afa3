package alignedbuf

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromSlice(t *testing.T) {
	for _, capacity := range []uint32{0, 1, 15, 16, 17, 100, 4096} {
		for _, n := range []uint32{0, 1, capacity / 2, capacity} {
			if n > capacity {
				continue
			}
			b := bytes.Repeat([]byte{0xab}, int(n))
			o := WithCapacity(capacity)
			o.CopyFromSlice(b)
			assert.Equal(t, n, o.Len())
			assert.Equal(t, b, o.Bytes())
			assert.Equal(t, capacity, o.Capacity())
			assert.Zero(t, o.DataPointer()%Alignment)
		}
	}
}

func TestCopyFromSliceReallocatesExactly(t *testing.T) {
	o := WithCapacity(4)
	o.CopyFromSlice([]byte("hello world"))
	assert.Equal(t, uint32(11), o.Capacity())
	assert.Equal(t, []byte("hello world"), o.Bytes())
}

func TestAppend(t *testing.T) {
	o := WithCapacity(4)
	require.True(t, o.Append([]byte("abc")))
	assert.Equal(t, uint32(4), o.Capacity())

	require.True(t, o.Append([]byte("de")))
	assert.Equal(t, uint32(8), o.Capacity(), "doubles")
	assert.Equal(t, []byte("abcde"), o.Bytes())

	require.True(t, o.Append(bytes.Repeat([]byte{1}, 20)))
	assert.Equal(t, uint32(25), o.Capacity(), "exact fit beats doubling")
	assert.Equal(t, []byte("abcde"), o.Bytes()[:5])
}

func TestAppendOverflow(t *testing.T) {
	o := WithCapacity(0)
	o.len = math.MaxUint32
	assert.False(t, o.Append([]byte{1}))
	assert.Equal(t, uint32(math.MaxUint32), o.Len())
}

func TestEnsureCapacity(t *testing.T) {
	o := FromBytes([]byte("data"))
	before := o.DataPointer()
	o.EnsureCapacity(2)
	assert.Equal(t, before, o.DataPointer())

	o.EnsureCapacity(64)
	assert.Equal(t, uint32(64), o.Capacity())
	assert.Equal(t, []byte("data"), o.Bytes())
	assert.Zero(t, o.DataPointer()%Alignment)
}

func TestSetLen(t *testing.T) {
	o := WithCapacity(8)
	copy(o.CapacityBytes(), "12345678")
	o.SetLen(5)
	assert.Equal(t, []byte("12345"), o.Bytes())
	assert.Panics(t, func() { o.SetLen(9) })
}

func TestSharedRoundTripReusesUniqueAllocation(t *testing.T) {
	o := FromBytes([]byte("state"))
	ptr := o.DataPointer()

	s := o.IntoShared()
	assert.Equal(t, uint32(1), s.RefCount())
	assert.True(t, o.IsEmpty())

	back := s.IntoOwned()
	assert.Equal(t, ptr, back.DataPointer())
	assert.Equal(t, []byte("state"), back.Bytes())
}

func TestSharedRoundTripCopiesWhenCloned(t *testing.T) {
	s := FromBytes([]byte("state")).IntoShared()
	clone := s.Clone()
	assert.Equal(t, uint32(2), s.RefCount())

	owned := s.IntoOwned()
	assert.NotEqual(t, clone.DataPointer(), owned.DataPointer())
	assert.Equal(t, clone.Bytes(), owned.Bytes())
	assert.Equal(t, uint32(1), clone.RefCount())

	// Mutating the copy leaves the clone alone.
	owned.Bytes()[0] = 'X'
	assert.Equal(t, []byte("state"), clone.Bytes())
}

func TestEmpty(t *testing.T) {
	e := Empty()
	assert.True(t, e.IsEmpty())
	assert.Equal(t, uint32(1), e.RefCount())

	c := e.Clone()
	assert.Equal(t, uint32(1), c.RefCount())
	c.Release()
	assert.Equal(t, uint32(1), e.RefCount())
	assert.Equal(t, e.DataPointer(), SharedFromBytes(nil).DataPointer())

	o := e.IntoOwned()
	require.True(t, o.Append([]byte("x")))
	assert.Equal(t, []byte("x"), o.Bytes())
	assert.True(t, Empty().IsEmpty())

	var zero Shared
	assert.Empty(t, zero.Bytes())
}
