package prepare

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PreparedTransaction is the tagged variant of spec §9: a prepared transaction is either Signed or Unsigned. Rather
// than a proxy object that intercepts sender-address retrieval at runtime, this is a small interface with two
// concrete implementations — the idiomatic Go shape for a closed tagged union.
type PreparedTransaction interface {
	// Sender returns the address the Simulation Engine should treat this transaction as originating from.
	Sender() common.Address
	// AsTransaction returns the underlying, immutable typed transaction.
	AsTransaction() *types.Transaction
	// IsSigned reports whether this transaction carries a genuine (synthetic-key) signature, as opposed to being
	// tagged with a literal sender address and no v/r/s.
	IsSigned() bool
}

// signedTransaction is a PreparedTransaction signed with a Signature Matcher-issued synthetic private key.
type signedTransaction struct {
	tx     *types.Transaction
	sender common.Address
}

func (s signedTransaction) Sender() common.Address         { return s.sender }
func (s signedTransaction) AsTransaction() *types.Transaction { return s.tx }
func (s signedTransaction) IsSigned() bool                 { return true }

// unsignedTransaction is a PreparedTransaction tagged with a literal sender address and no signature; the
// Simulation Engine's unsigned execution path (spec §4.1) is required to accept it.
type unsignedTransaction struct {
	tx     *types.Transaction
	sender common.Address
}

func (u unsignedTransaction) Sender() common.Address         { return u.sender }
func (u unsignedTransaction) AsTransaction() *types.Transaction { return u.tx }
func (u unsignedTransaction) IsSigned() bool                 { return false }
