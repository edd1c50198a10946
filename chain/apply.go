package chain

import (
	"github.com/crytic/forksim/chain/prepare"
	"github.com/crytic/forksim/chain/vendored"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

// newEVM constructs a fresh *vm.EVM bound to the engine's overlay and the given block context. The chain config is
// always the engine's own Common (spec §4.1's create), so every invocation executes under the same hardfork/EIP set.
func (e *Engine) newEVM(blockCtx vm.BlockContext) *vm.EVM {
	return vm.NewEVM(blockCtx, vm.TxContext{}, e.overlay, e.forkContext.Common, vm.Config{})
}

// buildMessage turns a PreparedTransaction into a core.Message, using the sender the Transaction Preparer already
// resolved (spec §4.4) rather than re-deriving it through signature recovery — the literal realization of spec
// §4.1's unsigned-path requirement that the EVM accept a transaction whose sender is tagged, not signed.
// skipAccountChecks corresponds to spec §4.1's skipBalance/skipNonce execution flags.
func buildMessage(ptx prepare.PreparedTransaction, skipAccountChecks bool) *core.Message {
	return buildMessageFromTx(ptx.AsTransaction(), ptx.Sender(), skipAccountChecks)
}

// buildMessageFromTx is buildMessage's tx/from-level primitive, used directly by gas estimation (chain/bundle.go's
// RunForEstimation) where there is no PreparedTransaction yet.
func buildMessageFromTx(tx *types.Transaction, from common.Address, skipAccountChecks bool) *core.Message {
	return &core.Message{
		To:                tx.To(),
		From:              from,
		Nonce:             tx.Nonce(),
		Value:             tx.Value(),
		GasLimit:          tx.Gas(),
		GasPrice:          tx.GasPrice(),
		GasFeeCap:         tx.GasFeeCap(),
		GasTipCap:         tx.GasTipCap(),
		Data:              tx.Data(),
		AccessList:        tx.AccessList(),
		SkipAccountChecks: skipAccountChecks,
	}
}

// runTransaction applies a single prepared transaction against the engine's overlay inside blockCtx, producing a
// go-ethereum receipt with logs scoped to just this transaction and the raw execution result (spec §4.1 step 5). It
// does not decode a revert reason; its caller does that when it converts the result.
func (e *Engine) runTransaction(ptx prepare.PreparedTransaction, blockCtx vm.BlockContext, blockHash common.Hash, cumulativeGasUsed *uint64, skipAccountChecks bool) (*types.Receipt, *core.ExecutionResult, error) {
	msg := buildMessage(ptx, skipAccountChecks)
	evm := e.newEVM(blockCtx)

	receipt, result, err := vendored.EVMApplyTransaction(msg, e.forkContext.Common, blockCtx.BlockNumber, blockHash, ptx.AsTransaction(), cumulativeGasUsed, evm)
	if err != nil {
		return nil, nil, err
	}
	return receipt, result, nil
}
