package guestmem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementDoesNotWrap(t *testing.T) {
	offset, err := element(16, 2, addressSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(48), offset)

	// the last element ends exactly at 4GiB
	offset, err = element(math.MaxUint32-15, 0, addressSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32-15), offset)

	_, err = element(math.MaxUint32-15, 1, addressSize)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = element(math.MaxUint32-3, 0, inputRefSize)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = element(0, math.MaxUint32, outputRefSize)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
