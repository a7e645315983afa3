package system_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/executor"
	"github.com/govm-net/nativevm/metadata"
	"github.com/govm-net/nativevm/system"
)

// plainCode is a contract without methods. It only needs an address and a state.
const plainCode = "test/plain@1"

func setupExecutor(t *testing.T) *executor.NativeExecutor {
	t.Helper()
	e, err := executor.NewBuilder(0).Build()
	require.NoError(t, err)
	return e
}

func deploy(t *testing.T, e *executor.NativeExecutor) core.Address {
	t.Helper()
	address, err := system.CodeDeploy(e.NullEnv(), env.Keep, []byte(plainCode))
	require.NoError(t, err)
	return address
}

func TestContractsMetadata(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range system.Contracts() {
		assert.False(t, seen[c.Code], c.Code)
		seen[c.Code] = true

		_, err := metadata.Describe(c.MainMetadata)
		require.NoError(t, err, c.Code)
		for _, m := range c.Methods {
			_, _, err := metadata.DecodeMethod(m.Metadata)
			require.NoError(t, err, c.Code)
			assert.NotNil(t, m.Fn)
		}
	}
	assert.Len(t, seen, 3)
}

func TestNewAllocatorState(t *testing.T) {
	allocator := core.SystemAddressAllocator(0)
	st := system.NewAllocatorState(allocator)

	one := uint256.NewInt(1)
	assert.Equal(t, new(uint256.Int).Add(allocator.Uint256(), one), st.NextAddress.Uint256())

	// the range ends right before the next shard's allocator
	next := core.SystemAddressAllocator(1).Uint256()
	assert.Equal(t, new(uint256.Int).Sub(next, one), st.MaxAddress.Uint256())
}

func TestCodeDeployAndRead(t *testing.T) {
	e := setupExecutor(t)
	first := deploy(t, e)
	second := deploy(t, e)
	assert.Equal(t, 1, second.Compare(first))

	code, err := system.CodeRead(e.NullEnv(), env.Keep, first)
	require.NoError(t, err)
	assert.Equal(t, plainCode, string(code))

	err = e.WithEnvRo(func(en *env.Env) error {
		code, err := system.CodeRead(en, env.Keep, second)
		assert.Equal(t, plainCode, string(code))
		return err
	})
	require.NoError(t, err)

	// deployments need a writable environment
	err = e.WithEnvRo(func(en *env.Env) error {
		_, err := system.CodeDeploy(en, env.Keep, []byte(plainCode))
		return err
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCodeStorePermissions(t *testing.T) {
	e := setupExecutor(t)
	address := deploy(t, e)
	other := deploy(t, e)

	// top-level callers may replace code
	require.NoError(t, system.CodeStore(e.NullEnv(), env.Keep, address, []byte("test/plain@2")))

	// so may the contract itself
	err := e.TransactionEmulate(address, func(en *env.Env) error {
		return system.CodeStore(en, env.Keep, address, []byte("test/plain@3"))
	})
	require.NoError(t, err)

	// but not another contract
	err = e.TransactionEmulate(other, func(en *env.Env) error {
		return system.CodeStore(en, env.Keep, address, []byte("test/evil@1"))
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	code, err := system.CodeRead(e.NullEnv(), env.Keep, address)
	require.NoError(t, err)
	assert.Equal(t, "test/plain@3", string(code))
}

func TestCodeStoreTooLarge(t *testing.T) {
	e := setupExecutor(t)
	address := deploy(t, e)
	err := system.CodeStore(e.NullEnv(), env.Keep, address, make([]byte, core.MaxCodeSize+1))
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestStateLifecycle(t *testing.T) {
	e := setupExecutor(t)
	address := deploy(t, e)

	empty, err := system.StateIsEmpty(e.NullEnv(), env.Keep, address)
	require.NoError(t, err)
	assert.True(t, empty)

	err = e.TransactionEmulate(address, func(en *env.Env) error {
		return system.StateInitialize(en, env.Keep, address, []byte("v1"))
	})
	require.NoError(t, err)

	state, err := system.StateRead(e.NullEnv(), env.Keep, address)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(state))

	err = e.TransactionEmulate(address, func(en *env.Env) error {
		assert.ErrorIs(t, system.StateInitialize(en, env.Keep, address, []byte("again")), core.ErrConflict)

		swapped, err := system.StateCompareAndWrite(en, env.Keep, address, []byte("other"), []byte("v2"))
		require.NoError(t, err)
		assert.False(t, swapped)

		swapped, err = system.StateCompareAndWrite(en, env.Keep, address, []byte("v1"), []byte("v2"))
		require.NoError(t, err)
		assert.True(t, swapped)
		return nil
	})
	require.NoError(t, err)

	state, err = system.StateRead(e.NullEnv(), env.Keep, address)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(state))
}

func TestStateWritePermissions(t *testing.T) {
	e := setupExecutor(t)
	address := deploy(t, e)
	other := deploy(t, e)

	err := system.StateWrite(e.NullEnv(), env.Keep, address, []byte("v1"))
	assert.ErrorIs(t, err, core.ErrForbidden)

	err = e.TransactionEmulate(other, func(en *env.Env) error {
		return system.StateWrite(en, env.Keep, address, []byte("v1"))
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	err = e.TransactionEmulate(address, func(en *env.Env) error {
		return system.StateWrite(en, env.Keep, address, make([]byte, system.RecommendedStateCapacity+1))
	})
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestAllocatorRules(t *testing.T) {
	e := setupExecutor(t)
	allocator := core.SystemAddressAllocator(0)

	// the allocator is initialized exactly once
	err := system.AllocatorNew(e.NullEnv(), env.Keep, allocator)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = system.AllocateAddress(e.NullEnv(), env.Keep, allocator)
	assert.ErrorIs(t, err, core.ErrForbidden)

	// allocators of other shards are not deployed here
	_, err = system.AllocateAddress(e.NullEnv(), env.Keep, core.SystemAddressAllocator(1))
	assert.ErrorIs(t, err, core.ErrNotFound)
}
