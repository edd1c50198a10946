package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sendFlags txFlags

// sendCmd forks the configured chain and executes a single transaction against the overlay (spec §4.1's execute):
// on success its effects are committed, on failure it reverts and nothing it did is observed. The engine is built
// fresh for each invocation and has no impersonation key registered, so the transaction runs on the unsigned path
// and no simulated block is mined.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Fork a chain and execute a single transaction against the overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		req, err := sendFlags.toTransactionRequest(cmd)
		if err != nil {
			return err
		}

		result, err := engine.Execute(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Printf("tx hash:     %s\n", result.Hash)
		fmt.Printf("status:      %t\n", result.Receipt.Status)
		fmt.Printf("gas used:    %d\n", result.Receipt.GasUsed)
		if result.SimulatedBlockNumber != nil {
			fmt.Printf("block:       %d\n", *result.SimulatedBlockNumber)
		}
		if result.Receipt.CreatedAddress != nil {
			fmt.Printf("created:     %s\n", result.Receipt.CreatedAddress.Hex())
		}
		if !result.Receipt.Status {
			fmt.Printf("error:       %s\n", result.Receipt.Error)
		}
		return nil
	},
}

func init() {
	addTxFlags(sendCmd, &sendFlags)
	rootCmd.AddCommand(sendCmd)
}
