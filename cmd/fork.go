package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// forkCmd forks the configured chain and reports what the Simulation Engine resolved its fork context to, without
// executing anything. Useful for checking --rpc-url/--block/--hardfork resolve to what the caller expects.
var forkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Fork a chain at a block height and print the resolved fork context",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		fc := engine.ForkContext()
		fmt.Printf("chain id:         %d\n", fc.ChainID)
		fmt.Printf("fork block:       %d\n", fc.ForkBlockNumber)
		fmt.Printf("rpc url:          %s\n", fc.ChainURL)
		fmt.Printf("current block:    %d\n", engine.CurrentBlockNumber())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forkCmd)
}
