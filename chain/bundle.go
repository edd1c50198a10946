package chain

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/crytic/forksim/chain/prepare"
	"github.com/crytic/forksim/chain/simerrors"
	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/crytic/forksim/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// Call executes tx statically and read-only (spec §4.1's call): it runs inside an OSM checkpoint that is
// unconditionally reverted, so no mutation from a call ever persists. `to` is required.
func (e *Engine) Call(ctx context.Context, req *chaintypes.TransactionRequest) (*chaintypes.CallResult, error) {
	if req.To == nil {
		return nil, simerrors.New(simerrors.InvalidArgument, "simulation engine: call requires a to address")
	}

	e.overlay.SetContext(ctx)
	checkpoint := e.overlay.Checkpoint()
	defer e.overlay.RevertToSnapshot(checkpoint)

	msg := &core.Message{
		To:                req.To,
		From:              req.From,
		Value:             req.ValueOrZero(),
		GasLimit:          estimationGasLimitOrDefault(req),
		GasPrice:          zeroIfNil(req.GasPrice),
		GasFeeCap:         zeroIfNil(req.GasFeeCap),
		GasTipCap:         zeroIfNil(req.GasTipCap),
		Data:              req.Data,
		AccessList:        req.AccessList,
		SkipAccountChecks: true,
	}

	blockCtx := newBlockContext(e, currentSyntheticHeader(e))
	evmInst := e.newEVM(blockCtx)
	result, err := core.ApplyMessage(evmInst, msg, new(core.GasPool).AddGas(msg.GasLimit))
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: call execution failed")
	}

	cr := &chaintypes.CallResult{
		ReturnData: result.ReturnData,
		GasUsed:    result.UsedGas,
		Failed:     result.Failed(),
	}
	if result.Failed() {
		cr.Error = chaintypes.DecodeRevertReason(result.ReturnData)
	}
	return cr, nil
}

// Execute is the single-transaction convenience wrapper around ExecuteBundle (spec §4.1).
func (e *Engine) Execute(ctx context.Context, req *chaintypes.TransactionRequest) (*chaintypes.TxResult, error) {
	results, err := e.ExecuteBundle(ctx, []*chaintypes.TransactionRequest{req})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// outcome pairs a prepared transaction with whatever it produced, ahead of the hash/index/commit bookkeeping common
// to both the fully-signed and unsigned execution paths.
type outcome struct {
	ptx     prepare.PreparedTransaction
	receipt *types.Receipt
	exec    *core.ExecutionResult
}

// ExecuteBundle implements spec §4.1's execution protocol: prepare every transaction, classify fully-signed vs
// unsigned, open one checkpoint for the whole bundle, run it, and commit or revert atomically.
func (e *Engine) ExecuteBundle(ctx context.Context, reqs []*chaintypes.TransactionRequest) ([]*chaintypes.TxResult, error) {
	e.overlay.SetContext(ctx)

	bundleID := uuid.New().String()
	e.logger.Debug("executing bundle ", bundleID, " (", len(reqs), " transactions)")

	prepared := make([]prepare.PreparedTransaction, 0, len(reqs))
	for _, req := range reqs {
		if utils.CheckContextDone(ctx) {
			return nil, simerrors.Wrap(ctx.Err(), simerrors.Upstream, "simulation engine: bundle execution canceled")
		}
		ptx, err := e.preparer.Prepare(ctx, req)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, ptx)
	}

	fullySigned := true
	for _, ptx := range prepared {
		if !ptx.IsSigned() {
			fullySigned = false
			break
		}
	}

	checkpoint := e.overlay.Checkpoint()

	var outcomes []outcome
	if fullySigned {
		outcomes = e.runSyntheticBlock(prepared)
	} else {
		outcomes = e.runUnsignedSequence(prepared)
	}

	results := make([]*chaintypes.TxResult, len(outcomes))
	bundleFailed := false
	for i, o := range outcomes {
		hash := computeTransactionHash(o.ptx)
		result := &chaintypes.TxResult{Hash: hash}
		if o.receipt == nil {
			bundleFailed = true
			result.Receipt = &chaintypes.Receipt{Status: false, Error: "transaction application failed"}
		} else {
			failed := o.receipt.Status == types.ReceiptStatusFailed
			result.Receipt = chaintypes.NewReceiptFromExecutionResult(
				o.receipt.CumulativeGasUsed, o.receipt.GasUsed, o.receipt.Logs, createdAddressOf(o.receipt), failed, o.exec.ReturnData, o.receipt.Bloom,
			)
			if failed {
				bundleFailed = true
			}
		}
		results[i] = result
	}

	if bundleFailed {
		e.overlay.RevertToSnapshot(checkpoint)
		e.logger.Debug("bundle ", bundleID, " reverted")
		e.onBundleReverted.Publish(BundleRevertedEvent{BundleID: bundleID, Reason: "one or more transactions in the bundle failed"})
	} else {
		e.overlay.Commit()
		if fullySigned {
			blockNum, _ := e.blockCounter.advance()
			external := resolve(e.forkContext.ForkBlockNumber, blockNum)
			for _, r := range results {
				r.SimulatedBlockNumber = &external
			}
			hashes := utils.SliceSelect(results, func(r *chaintypes.TxResult) common.Hash {
				return common.HexToHash(r.Hash)
			})
			e.advanceHead(external, hashes)
			e.logger.Info("mined simulated block ", external, " (bundle ", bundleID, ")")
			e.onBlockMined.Publish(BlockMinedEvent{BundleID: bundleID, BlockNumber: external, TxHashes: hashes})
		}
	}

	for i, result := range results {
		e.txIndex.insert(result.Hash, outcomes[i].ptx.AsTransaction(), result, result.SimulatedBlockNumber)
	}

	return results, nil
}

// ExecuteTypedTransaction runs an already-typed, already-signed transaction directly, skipping the Transaction
// Preparer — the path a raw-transaction submission (eth_sendRawTransaction) uses, per spec §4.1. Callers should pass
// e.Signer() so a synthetic-key-signed transaction recovers to the account it impersonates rather than to the
// synthetic key's own address.
func (e *Engine) ExecuteTypedTransaction(ctx context.Context, signer types.Signer, tx *types.Transaction) (*chaintypes.TxResult, error) {
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.InvalidArgument, "simulation engine: recovering sender of raw transaction")
	}

	e.overlay.SetContext(ctx)
	checkpoint := e.overlay.Checkpoint()

	blockCtx := newBlockContext(e, currentSyntheticHeader(e))
	var cumulative uint64
	receipt, exec, err := e.runTransaction(rawPrepared{tx: tx, sender: sender}, blockCtx, e.head.hash, &cumulative, false)
	if err != nil {
		e.overlay.RevertToSnapshot(checkpoint)
		return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: executing raw transaction")
	}

	failed := receipt.Status == types.ReceiptStatusFailed
	if failed {
		e.overlay.RevertToSnapshot(checkpoint)
	} else {
		e.overlay.Commit()
	}

	result := &chaintypes.TxResult{
		Hash: tx.Hash().Hex(),
		Receipt: chaintypes.NewReceiptFromExecutionResult(
			receipt.CumulativeGasUsed, receipt.GasUsed, receipt.Logs, createdAddressOf(receipt), failed, exec.ReturnData, receipt.Bloom,
		),
	}
	e.txIndex.insert(result.Hash, tx, result, nil)
	return result, nil
}

// EstimateGas implements spec §4.1's estimateGas, delegating to the Transaction Preparer's disposable-transaction
// estimation.
func (e *Engine) EstimateGas(ctx context.Context, req *chaintypes.TransactionRequest) (uint64, error) {
	return e.preparer.EstimateGas(ctx, req)
}

// RunForEstimation satisfies prepare.EstimationRunner: it opens a checkpoint, runs tx as from, and unconditionally
// reverts, per spec §4.4 step 3.
func (e *Engine) RunForEstimation(ctx context.Context, tx *types.Transaction, from common.Address) (gasUsed uint64, reverted bool, returnData []byte, err error) {
	e.overlay.SetContext(ctx)
	checkpoint := e.overlay.Checkpoint()
	defer e.overlay.RevertToSnapshot(checkpoint)

	msg := buildMessageFromTx(tx, from, true)
	blockCtx := newBlockContext(e, currentSyntheticHeader(e))
	evmInst := e.newEVM(blockCtx)
	result, err := core.ApplyMessage(evmInst, msg, new(core.GasPool).AddGas(msg.GasLimit))
	if err != nil {
		return 0, false, nil, err
	}
	return result.UsedGas, result.Failed(), result.ReturnData, nil
}

// runSyntheticBlock implements spec §4.1 step 3: synthesize one block (parent/gas-limit/timestamp derived from the
// current head, but the counter itself only advances once the caller knows the bundle succeeded) and run every
// prepared transaction against it in order.
func (e *Engine) runSyntheticBlock(prepared []prepare.PreparedTransaction) []outcome {
	gasLimit := e.head.gasLimit
	var txGasSum uint64
	for _, ptx := range prepared {
		txGasSum += ptx.AsTransaction().Gas()
	}
	if txGasSum > gasLimit {
		gasLimit = txGasSum
	}

	blockIndex, timestamp := peekNextBlock(e)
	header := &types.Header{
		ParentHash: e.head.hash,
		Number:     new(big.Int).SetUint64(resolve(e.forkContext.ForkBlockNumber, blockIndex)),
		Time:       timestamp,
		GasLimit:   gasLimit,
		Coinbase:   e.head.coinbase,
		BaseFee:    e.head.baseFee,
		Difficulty: big.NewInt(0),
	}
	blockHash := header.Hash()

	blockCtx := newBlockContext(e, header)
	outcomes := make([]outcome, len(prepared))
	var cumulative uint64
	for i, ptx := range prepared {
		receipt, exec, err := e.runTransaction(ptx, blockCtx, blockHash, &cumulative, true)
		if err != nil {
			outcomes[i] = outcome{ptx: ptx}
			continue
		}
		outcomes[i] = outcome{ptx: ptx, receipt: receipt, exec: exec}
	}
	return outcomes
}

// runUnsignedSequence implements spec §4.1 step 4: no block is synthesized; each transaction runs individually
// against the current head's block context.
func (e *Engine) runUnsignedSequence(prepared []prepare.PreparedTransaction) []outcome {
	header := currentSyntheticHeader(e)
	blockCtx := newBlockContext(e, header)
	outcomes := make([]outcome, len(prepared))
	var cumulative uint64
	for i, ptx := range prepared {
		receipt, exec, err := e.runTransaction(ptx, blockCtx, e.head.hash, &cumulative, true)
		if err != nil {
			outcomes[i] = outcome{ptx: ptx}
			continue
		}
		outcomes[i] = outcome{ptx: ptx, receipt: receipt, exec: exec}
	}
	return outcomes
}

// advanceHead moves the engine's canonical head to the newly synthesized block, recording its hash for future
// BLOCKHASH lookups (spec §4.1's blockHash resolution).
func (e *Engine) advanceHead(externalNumber uint64, txHashes []common.Hash) {
	hash := syntheticBlockIdentityHash(externalNumber, txHashes)
	e.simulatedBlockHashes[externalNumber] = hash
	e.head = head{
		hash:      hash,
		number:    externalNumber,
		timestamp: e.blockCounter.lastTimestamp,
		gasLimit:  e.head.gasLimit,
		coinbase:  e.head.coinbase,
		baseFee:   e.head.baseFee,
	}
}

// syntheticBlockIdentityHash derives a stand-in block hash for a synthesized block from its number and the
// transactions it carried — there is no real header to hash since this engine never materializes a trie.
func syntheticBlockIdentityHash(externalNumber uint64, txHashes []common.Hash) common.Hash {
	h := &types.Header{Number: new(big.Int).SetUint64(externalNumber)}
	if len(txHashes) > 0 {
		h.TxHash = txHashes[0]
	}
	return h.Hash()
}

// computeTransactionHash realizes spec §4.1 step 5's hash derivation. A signed transaction's hash is trustworthy
// (its signature disambiguates it from every other transaction). An unsigned transaction carries no signature to
// disambiguate it, so rather than risk two different senders' otherwise-identical unsigned transactions colliding
// on the same hash, a fresh placeholder is always fabricated for the unsigned path: the first 12 bytes zero, the
// remaining 20 random.
func computeTransactionHash(ptx prepare.PreparedTransaction) string {
	if ptx.IsSigned() {
		return ptx.AsTransaction().Hash().Hex()
	}
	var placeholder common.Hash
	_, _ = rand.Read(placeholder[12:])
	return placeholder.Hex()
}

func createdAddressOf(receipt *types.Receipt) *common.Address {
	if receipt.ContractAddress == (common.Address{}) {
		return nil
	}
	addr := receipt.ContractAddress
	return &addr
}

func estimationGasLimitOrDefault(req *chaintypes.TransactionRequest) uint64 {
	if req.Gas != nil {
		return *req.Gas
	}
	return 10_000_000
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// currentSyntheticHeader builds a throwaway header describing the engine's current head, for block contexts that
// don't need a newly synthesized block (Call, EstimateGas, RunForEstimation, the unsigned execution path).
func currentSyntheticHeader(e *Engine) *types.Header {
	return &types.Header{
		ParentHash: e.head.hash,
		Number:     new(big.Int).SetUint64(e.head.number),
		Time:       e.head.timestamp,
		GasLimit:   e.head.gasLimit,
		Coinbase:   e.head.coinbase,
		BaseFee:    e.head.baseFee,
		Difficulty: big.NewInt(0),
	}
}

// peekNextBlock returns the block index and timestamp the next synthesized block will use, without mutating the
// counter — the counter only actually advances once the bundle is known to have succeeded.
func peekNextBlock(e *Engine) (uint64, uint64) {
	return e.blockCounter.current + 1, e.blockCounter.lastTimestamp + 1
}

// rawPrepared adapts an already-signed raw transaction to prepare.PreparedTransaction so it can flow through the
// same Engine.runTransaction helper the prepared paths use.
type rawPrepared struct {
	tx     *types.Transaction
	sender common.Address
}

func (r rawPrepared) Sender() common.Address            { return r.sender }
func (r rawPrepared) AsTransaction() *types.Transaction { return r.tx }
func (r rawPrepared) IsSigned() bool                    { return true }
