// Package api provides the configuration of the native executor.
// This package defines the knobs a node sets when it creates executors, it is not used by contracts.
package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/govm-net/nativevm/core"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
const EnvPrefix = "NATIVEVM"

// ExecutorConfig defines configuration for building and running an executor
type ExecutorConfig struct {
	// ShardIndex is the shard the executor serves
	ShardIndex uint32 `mapstructure:"shard_index"`

	// MaxCallDepth is the maximum depth of contract calls
	MaxCallDepth int `mapstructure:"max_call_depth"`

	// MaxGas is the gas limit of one transaction, 0 disables metering
	MaxGas uint64 `mapstructure:"max_gas"`

	// MaxCodeSize is the maximum size of contract code in bytes
	MaxCodeSize uint32 `mapstructure:"max_code_size"`

	// MaxTotalMethodArgs bounds the arguments of one method, including the state
	MaxTotalMethodArgs int `mapstructure:"max_total_method_args"`

	// MaxMetadataCapacity bounds compacted metadata
	MaxMetadataCapacity int `mapstructure:"max_metadata_capacity"`

	// RecommendedStateCapacity is the state capacity of the state registry
	RecommendedStateCapacity uint32 `mapstructure:"recommended_state_capacity"`

	// StoreType selects the snapshot store backend, empty for none
	StoreType string `mapstructure:"store_type"`

	// StoreParams are passed to the snapshot store factory
	StoreParams map[string]any `mapstructure:"store_params"`
}

// DefaultExecutorConfig returns a default configuration for executors
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		ShardIndex:               0,
		MaxCallDepth:             8,
		MaxGas:                   0,
		MaxCodeSize:              core.MaxCodeSize, // 1MB
		MaxTotalMethodArgs:       core.MaxTotalMethodArgs,
		MaxMetadataCapacity:      8192,
		RecommendedStateCapacity: 1024,
		StoreType:                "memory",
		StoreParams:              map[string]any{},
	}
}

// Shard returns the validated shard index.
func (c ExecutorConfig) Shard() (core.ShardIndex, error) {
	return core.NewShardIndex(c.ShardIndex)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *ExecutorConfig) error {
	if config == nil {
		return errors.New("config is nil")
	}
	if _, err := config.Shard(); err != nil {
		return fmt.Errorf("invalid shard index: %w", err)
	}
	if config.MaxCallDepth <= 0 {
		return fmt.Errorf("invalid max call depth: %d", config.MaxCallDepth)
	}
	if config.MaxCodeSize == 0 || config.MaxCodeSize > core.MaxCodeSize {
		return fmt.Errorf("invalid max code size: %d", config.MaxCodeSize)
	}
	if config.MaxTotalMethodArgs <= 0 || config.MaxTotalMethodArgs > core.MaxTotalMethodArgs {
		return fmt.Errorf("invalid max total method args: %d", config.MaxTotalMethodArgs)
	}
	if config.MaxMetadataCapacity <= 0 {
		return fmt.Errorf("invalid max metadata capacity: %d", config.MaxMetadataCapacity)
	}
	if config.RecommendedStateCapacity == 0 {
		return errors.New("recommended state capacity is zero")
	}
	return nil
}

// newViper returns a viper instance seeded with the defaults
func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultExecutorConfig()
	v.SetDefault("shard_index", d.ShardIndex)
	v.SetDefault("max_call_depth", d.MaxCallDepth)
	v.SetDefault("max_gas", d.MaxGas)
	v.SetDefault("max_code_size", d.MaxCodeSize)
	v.SetDefault("max_total_method_args", d.MaxTotalMethodArgs)
	v.SetDefault("max_metadata_capacity", d.MaxMetadataCapacity)
	v.SetDefault("recommended_state_capacity", d.RecommendedStateCapacity)
	v.SetDefault("store_type", d.StoreType)
	v.SetDefault("store_params", d.StoreParams)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration from a YAML, JSON or TOML file. An empty path loads the
// defaults, with environment overrides applied in both cases.
func LoadConfig(path string) (*ExecutorConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config ExecutorConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}
