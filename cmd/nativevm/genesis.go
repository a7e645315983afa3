package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var listSlots bool

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Bootstrap a shard and print its state digest",
	Long: `Bootstrap the system contracts of the configured shard, or restore the shard from
the configured store, and print the digest of its slots.
Example: nativevm genesis -c config.yaml --slots`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, s, err := openExecutor()
		if err != nil {
			return err
		}
		if s != nil {
			defer s.Close()
		}

		out := cmd.OutOrStdout()
		entries := exec.Entries()
		digest := exec.Digest()
		fmt.Fprintf(out, "shard:  %s\n", exec.ShardIndex())
		fmt.Fprintf(out, "slots:  %d\n", len(entries))
		fmt.Fprintf(out, "digest: %s\n", hex.EncodeToString(digest[:]))
		if listSlots {
			for _, e := range entries {
				fmt.Fprintf(out, "  %s/%s %d bytes\n", e.Owner, e.Contract, len(e.Data))
			}
		}
		return nil
	},
}

func init() {
	genesisCmd.Flags().BoolVar(&listSlots, "slots", false, "List every slot")
}
