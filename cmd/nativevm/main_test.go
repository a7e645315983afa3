package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/nativevm/system"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configFile, abiDir, listSlots = "", "", false
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestGenesisCommand(t *testing.T) {
	out := run(t, "genesis", "--slots")
	assert.Contains(t, out, "shard:  0")
	assert.Contains(t, out, "slots:  4")
	assert.Contains(t, out, "digest: ")

	// the same shard always digests to the same value
	assert.Equal(t, out, run(t, "genesis", "--slots"))
}

func TestGenesisWithConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	config := "shard_index: 3\nstore_type: kv\nstore_params:\n  dir: " + filepath.Join(dir, "kv") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))

	first := run(t, "genesis", "-c", path)
	assert.Contains(t, first, "shard:  3")
	// restored from the store
	assert.Equal(t, first, run(t, "genesis", "-c", path))
}

func TestDescribeCommand(t *testing.T) {
	out := run(t, "describe")
	assert.Contains(t, out, system.StateContractCode)
	assert.Contains(t, out, system.CodeContractCode)

	dir := t.TempDir()
	out = run(t, "describe", system.StateContractCode, "--abi", dir)
	assert.Contains(t, out, "compare_and_write")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
