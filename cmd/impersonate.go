package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var impersonatePubkey string

// impersonateCmd registers a public key for impersonation (spec §4.1's impersonateAccount / spec §4.3) and prints
// the synthetic private key the Signature Matcher issued for it, alongside the address it impersonates.
var impersonateCmd = &cobra.Command{
	Use:   "impersonate",
	Short: "Register a public key for impersonation and print its synthetic private key",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngineFromFlags(cmd.Context())
		if err != nil {
			return err
		}

		pubKeyBytes, err := hexutil.Decode(impersonatePubkey)
		if err != nil {
			return err
		}

		privKeyBytes, err := engine.ImpersonateAccount(pubKeyBytes)
		if err != nil {
			return err
		}

		pub, err := crypto.UnmarshalPubkey(pubKeyBytes)
		if err != nil {
			return err
		}
		fmt.Printf("impersonating:  %s\n", crypto.PubkeyToAddress(*pub).Hex())
		fmt.Printf("synthetic key:  %s\n", hexutil.Encode(privKeyBytes))
		return nil
	},
}

func init() {
	impersonateCmd.Flags().StringVar(&impersonatePubkey, "pubkey", "", "uncompressed public key to impersonate, hex-encoded (required)")
	_ = impersonateCmd.MarkFlagRequired("pubkey")
	rootCmd.AddCommand(impersonateCmd)
}
