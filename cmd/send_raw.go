package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
)

var sendRawTxHex string

// sendRawCmd executes an already-typed, already-signed transaction directly against the overlay, the
// eth_sendRawTransaction-shaped path that skips the Transaction Preparer entirely (spec §4.1). The sender is
// recovered with the engine's impersonation-aware Signer. The engine is built fresh for each invocation, so its
// matcher holds no registration from an earlier "impersonate" run: a transaction signed with a synthetic key from
// that run recovers to the synthetic key's own address.
var sendRawCmd = &cobra.Command{
	Use:   "send-raw",
	Short: "Execute an already-signed raw transaction against the overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		raw, err := hexutil.Decode(sendRawTxHex)
		if err != nil {
			return err
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return err
		}

		result, err := engine.ExecuteTypedTransaction(cmd.Context(), engine.Signer(), tx)
		if err != nil {
			return err
		}

		fmt.Printf("tx hash:     %s\n", result.Hash)
		fmt.Printf("status:      %t\n", result.Receipt.Status)
		fmt.Printf("gas used:    %d\n", result.Receipt.GasUsed)
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
	sendRawCmd.Flags().StringVar(&sendRawTxHex, "raw-tx", "", "RLP-encoded signed transaction, hex-encoded (required)")
	_ = sendRawCmd.MarkFlagRequired("raw-tx")
	rootCmd.AddCommand(sendRawCmd)
}
