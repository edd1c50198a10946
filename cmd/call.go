package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var callFlags txFlags

// callCmd forks the configured chain and issues a read-only call against it (spec §4.1's call): the overlay is
// checkpointed and unconditionally reverted, so no state mutation from this command is ever observed.
var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Fork a chain and issue a read-only call against the overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		req, err := callFlags.toTransactionRequest(cmd)
		if err != nil {
			return err
		}

		result, err := engine.Call(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Printf("gas used:    %d\n", result.GasUsed)
		fmt.Printf("failed:      %t\n", result.Failed)
		if result.Failed {
			fmt.Printf("error:       %s\n", result.Error)
		}
		fmt.Printf("return data: %s\n", hexutil.Encode(result.ReturnData))
		return nil
	},
}

func init() {
	addTxFlags(callCmd, &callFlags)
	rootCmd.AddCommand(callCmd)
}
