package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

// TransactionRequest is the loose, partially-populated input spec §4.4 names: a caller supplies whatever fields it
// knows and the Transaction Preparer fills in the rest (nonce, gas, fees, type).
type TransactionRequest struct {
	From     common.Address
	To       *common.Address
	Gas      *uint64
	GasPrice *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int
	Value    *big.Int
	Nonce    *uint64
	Data     []byte
	Type     *byte
	AccessList gethTypes.AccessList
}

// ValueOrZero returns the request's value, defaulting to zero per spec §4.1's call() rule.
func (r *TransactionRequest) ValueOrZero() *big.Int {
	if r.Value == nil {
		return big.NewInt(0)
	}
	return r.Value
}
