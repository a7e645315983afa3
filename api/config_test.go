package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultExecutorConfig()
	require.NoError(t, ValidateConfig(&config))
	assert.Equal(t, 8, config.MaxCallDepth)
	assert.Equal(t, uint32(1024*1024), config.MaxCodeSize)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ExecutorConfig)
	}{
		{"shard out of range", func(c *ExecutorConfig) { c.ShardIndex = 1 << 20 }},
		{"zero call depth", func(c *ExecutorConfig) { c.MaxCallDepth = 0 }},
		{"code too large", func(c *ExecutorConfig) { c.MaxCodeSize = 2 * 1024 * 1024 }},
		{"too many args", func(c *ExecutorConfig) { c.MaxTotalMethodArgs = 9 }},
		{"no metadata capacity", func(c *ExecutorConfig) { c.MaxMetadataCapacity = 0 }},
		{"no state capacity", func(c *ExecutorConfig) { c.RecommendedStateCapacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultExecutorConfig()
			tt.modify(&config)
			assert.Error(t, ValidateConfig(&config))
		})
	}
	assert.Error(t, ValidateConfig(nil))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executor.yaml")
	data := []byte("shard_index: 7\nmax_gas: 5000\nstore_type: kv\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), config.ShardIndex)
	assert.Equal(t, uint64(5000), config.MaxGas)
	assert.Equal(t, "kv", config.StoreType)
	assert.Equal(t, 8, config.MaxCallDepth, "defaults fill missing keys")
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("NATIVEVM_MAX_CALL_DEPTH", "3")
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3, config.MaxCallDepth)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_call_depth: 0\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
