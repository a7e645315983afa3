package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/nativevm/api"
	"github.com/govm-net/nativevm/executor"
	"github.com/govm-net/nativevm/store"
	_ "github.com/govm-net/nativevm/store/db"
	_ "github.com/govm-net/nativevm/store/kv"
	_ "github.com/govm-net/nativevm/store/memory"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "nativevm",
	Short: "Native contract executor tool",
	Long: `Command line tool for bootstrapping native contract executors and inspecting
the contracts they are built with.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.AddCommand(genesisCmd)
	rootCmd.AddCommand(describeCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openExecutor builds the executor of the configured shard. The returned store is nil when
// no store is configured.
func openExecutor() (*executor.NativeExecutor, store.SnapshotStore, error) {
	config, err := api.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	shard, err := config.Shard()
	if err != nil {
		return nil, nil, err
	}

	opts := []executor.Option{executor.WithConfig(*config), executor.WithLogger(newLogger())}
	var s store.SnapshotStore
	if config.StoreType != "" {
		s, err = store.Get(store.StoreType(config.StoreType), config.StoreParams)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, executor.WithStore(s))
	}

	exec, err := executor.NewBuilder(shard, opts...).Build()
	if err != nil {
		if s != nil {
			_ = s.Close()
		}
		return nil, nil, fmt.Errorf("failed to build executor: %w", err)
	}
	return exec, s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
