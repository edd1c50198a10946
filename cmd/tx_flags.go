package cmd

import (
	"fmt"
	"math/big"

	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/crytic/forksim/utils"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// txFlags are the transaction-request fields shared by call/send/estimate-gas: a caller supplies whatever it knows
// and the Transaction Preparer fills in the rest (spec §4.4).
type txFlags struct {
	from     string
	to       string
	data     string
	value    string
	gas      uint64
	gasPrice string
	nonce    uint64
}

// addTxFlags registers the transaction-request flags shared by call/send/estimate-gas onto cmd.
func addTxFlags(cmd *cobra.Command, f *txFlags) {
	cmd.Flags().StringVar(&f.from, "from", "", "sender address (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "recipient address (omit for contract creation)")
	cmd.Flags().StringVar(&f.data, "data", "0x", "call data, hex-encoded")
	cmd.Flags().StringVar(&f.value, "value", "0", "wei value to send, decimal or 0x-hex")
	cmd.Flags().Uint64Var(&f.gas, "gas", 0, "gas limit (0 lets the engine estimate it)")
	cmd.Flags().StringVar(&f.gasPrice, "gas-price", "", "gas price, wei, decimal or 0x-hex; only call uses it (send and estimate-gas ignore it)")
	cmd.Flags().Uint64Var(&f.nonce, "nonce", 0, "sender nonce (omit to use the account's next nonce)")
	_ = cmd.MarkFlagRequired("from")
}

// toTransactionRequest converts the parsed CLI flags into a chaintypes.TransactionRequest.
func (f *txFlags) toTransactionRequest(cmd *cobra.Command) (*chaintypes.TransactionRequest, error) {
	from, err := utils.HexStringToAddress(f.from)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q for --from: %w", f.from, err)
	}

	data, err := hexutil.Decode(f.data)
	if err != nil {
		return nil, err
	}

	value, ok := new(big.Int).SetString(f.value, 0)
	if !ok {
		return nil, fmt.Errorf("invalid value %q for --value", f.value)
	}

	req := &chaintypes.TransactionRequest{
		From:  from,
		Data:  data,
		Value: value,
	}

	if f.to != "" {
		to, err := utils.HexStringToAddress(f.to)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q for --to: %w", f.to, err)
		}
		req.To = &to
	}
	if f.gas != 0 {
		req.Gas = &f.gas
	}
	if f.gasPrice != "" {
		gasPrice, ok := new(big.Int).SetString(f.gasPrice, 0)
		if !ok {
			return nil, fmt.Errorf("invalid value %q for --gas-price", f.gasPrice)
		}
		req.GasPrice = gasPrice
	}
	if cmd.Flags().Changed("nonce") {
		nonce := f.nonce
		req.Nonce = &nonce
	}

	return req, nil
}
