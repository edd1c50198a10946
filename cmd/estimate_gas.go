package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var estimateGasFlags txFlags

// estimateGasCmd forks the configured chain and reports the gas a transaction would consume, per spec §4.4's
// disposable-transaction estimation, without mutating the overlay.
var estimateGasCmd = &cobra.Command{
	Use:   "estimate-gas",
	Short: "Estimate the gas a transaction would consume against the forked overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		req, err := estimateGasFlags.toTransactionRequest(cmd)
		if err != nil {
			return err
		}

		gas, err := engine.EstimateGas(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Printf("gas: %d\n", gas)
		return nil
	},
}

func init() {
	addTxFlags(estimateGasCmd, &estimateGasFlags)
	rootCmd.AddCommand(estimateGasCmd)
}
