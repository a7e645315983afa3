package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var abiDir string

var describeCmd = &cobra.Command{
	Use:   "describe [code]",
	Short: "Describe the registered contracts",
	Long: `Print the metadata of the contracts an executor is built with. Without an argument
every contract is listed.
Example: nativevm describe nativevm/system/state@1 --abi ./abi`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, s, err := openExecutor()
		if err != nil {
			return err
		}
		if s != nil {
			defer s.Close()
		}
		catalog := exec.Catalog()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			desc, err := catalog.Describe(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(desc))
		} else {
			for _, r := range catalog.List() {
				fmt.Fprintf(out, "%s %s (%d methods)\n", r.ID, r.Code, len(r.Methods))
			}
		}

		if abiDir != "" {
			if err := catalog.SaveTo(abiDir); err != nil {
				return fmt.Errorf("failed to write abi files: %w", err)
			}
			fmt.Fprintf(out, "abi files are stored in: %s\n", abiDir)
		}
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVarP(&abiDir, "abi", "a", "", "Directory to write compacted abi and metadata files to")
}
