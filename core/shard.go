package core

import "fmt"

const (
	// MaxShards is the number of shards the address space is partitioned into.
	MaxShards = 1 << 20
	// MaxShardIndex is the largest valid shard index.
	MaxShardIndex = MaxShards - 1
)

// ShardIndex identifies the shard that owns a contract.
type ShardIndex uint32

// NewShardIndex validates the upper bound.
func NewShardIndex(v uint32) (ShardIndex, error) {
	if v > MaxShardIndex {
		return 0, fmt.Errorf("shard index %d exceeds maximum %d", v, MaxShardIndex)
	}
	return ShardIndex(v), nil
}

func (s ShardIndex) String() string { return fmt.Sprintf("%d", uint32(s)) }
