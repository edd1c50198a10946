// Package prepare implements the Transaction Preparer (spec §4.4): it normalizes a loose transaction request into
// one of the typed transaction variants, with nonce, gas limit, and fees populated, then either signs it with a
// synthetic key from the Signature Matcher or tags it with the impersonated sender.
package prepare

import (
	"context"
	"fmt"
	"math/big"

	"github.com/crytic/forksim/chain/signature"
	"github.com/crytic/forksim/chain/simerrors"
	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// estimationGasLimit and estimationMaxFeePerGas are the fixed parameters spec §4.4 assigns to the disposable
// transaction used purely to measure gas consumption.
const (
	estimationGasLimit     = 10_000_000
	estimationMaxFeePerGas = 10
	defaultCreationGas     = 10_000_000
)

// AccountNonceSource is the minimal capability Preparer needs from the Overlay State Manager: the current nonce of
// an address, defaulting to zero for an account that has never been observed. Declared here (accept-interfaces)
// rather than importing chain/overlay concretely.
type AccountNonceSource interface {
	GetNonce(addr common.Address) uint64
}

// EstimationRunner is the minimal capability Preparer needs from the Simulation Engine's EVM runtime: execute a
// single transaction inside a disposable checkpoint and report how much gas it spent. Declared here so package
// prepare never imports package chain, avoiding an import cycle (chain imports prepare to drive TP).
type EstimationRunner interface {
	RunForEstimation(ctx context.Context, tx *types.Transaction, from common.Address) (gasUsed uint64, reverted bool, returnData []byte, err error)
}

// Preparer is the Transaction Preparer.
type Preparer struct {
	nonces   AccountNonceSource
	runner   EstimationRunner
	matcher  *signature.Matcher
	chainID  uint64
}

// NewPreparer constructs a Transaction Preparer bound to the given nonce source, estimation runner, signature
// matcher, and chain ID.
func NewPreparer(nonces AccountNonceSource, runner EstimationRunner, matcher *signature.Matcher, chainID uint64) *Preparer {
	return &Preparer{nonces: nonces, runner: runner, matcher: matcher, chainID: chainID}
}

// Prepare normalizes req into a PreparedTransaction, per spec §4.4's populate protocol followed by construct-and-
// sign-or-impersonate.
func (p *Preparer) Prepare(ctx context.Context, req *chaintypes.TransactionRequest) (PreparedTransaction, error) {
	if req.From == (common.Address{}) {
		return nil, simerrors.New(simerrors.InvalidArgument, "transaction preparer: from address is not well-formed")
	}

	nonce := req.Nonce
	if nonce == nil {
		n := p.nonces.GetNonce(req.From)
		nonce = &n
	}

	gas := req.Gas
	if gas == nil {
		if req.To == nil {
			g := uint64(defaultCreationGas)
			gas = &g
		} else {
			estimated, err := p.estimateGas(ctx, req, *nonce)
			if err != nil {
				return nil, err
			}
			gas = &estimated
		}
	}

	gasFeeCap, gasTipCap := populateFees(req)

	typedTx := p.constructTypedTransaction(req, *nonce, *gas, gasFeeCap, gasTipCap)
	return p.signOrImpersonate(typedTx, req.From)
}

// EstimateGas runs spec §4.4 step 3's disposable-transaction estimation directly, for callers (Engine.EstimateGas)
// that want a gas figure without preparing a full signed-or-tagged transaction.
func (p *Preparer) EstimateGas(ctx context.Context, req *chaintypes.TransactionRequest) (uint64, error) {
	nonce := req.Nonce
	if nonce == nil {
		n := p.nonces.GetNonce(req.From)
		nonce = &n
	}
	return p.estimateGas(ctx, req, *nonce)
}

// populateFees fills in fee-market defaults for a request that did not specify them explicitly. A simulator has no
// real mempool to price against, so conservative, deterministic defaults are used rather than querying a gas
// oracle.
func populateFees(req *chaintypes.TransactionRequest) (gasFeeCap, gasTipCap *big.Int) {
	gasTipCap = req.GasTipCap
	if gasTipCap == nil {
		gasTipCap = big.NewInt(1_000_000_000) // 1 gwei
	}
	gasFeeCap = req.GasFeeCap
	if gasFeeCap == nil {
		gasFeeCap = new(big.Int).Mul(gasTipCap, big.NewInt(2))
	}
	return gasFeeCap, gasTipCap
}

// estimateGas implements spec §4.4 step 3: runs a disposable 1559-typed transaction against the shared overlay,
// inside a checkpoint the caller (via EstimationRunner) is responsible for opening and unconditionally reverting,
// and returns totalGasSpent. A revert during estimation is decorated with the decoded reason and surfaced as an
// Upstream-flavored error.
func (p *Preparer) estimateGas(ctx context.Context, req *chaintypes.TransactionRequest, nonce uint64) (uint64, error) {
	probe := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(p.chainID),
		Nonce:     nonce,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(estimationMaxFeePerGas),
		Gas:       estimationGasLimit,
		To:        req.To,
		Value:     req.ValueOrZero(),
		Data:      req.Data,
	})

	gasUsed, reverted, returnData, err := p.runner.RunForEstimation(ctx, probe, req.From)
	if err != nil {
		return 0, simerrors.Wrap(err, simerrors.Upstream, "transaction preparer: gas estimation failed")
	}
	if reverted {
		return 0, simerrors.New(simerrors.Upstream, fmt.Sprintf("transaction preparer: gas estimation reverted: %s", chaintypes.DecodeRevertReason(returnData)))
	}
	return gasUsed, nil
}

// constructTypedTransaction chooses the transaction class by req.Type (0x2 -> 1559, 0x1 -> 2930, else legacy), per
// spec §4.4. An unset Type is treated as 0x2.
func (p *Preparer) constructTypedTransaction(req *chaintypes.TransactionRequest, nonce, gas uint64, gasFeeCap, gasTipCap *big.Int) *types.Transaction {
	txType := byte(0x2)
	if req.Type != nil {
		txType = *req.Type
	}
	if txType != 0x1 && txType != 0x2 {
		txType = 0x0
	}

	switch txType {
	case 0x1:
		return types.NewTx(&types.AccessListTx{
			ChainID:    new(big.Int).SetUint64(p.chainID),
			Nonce:      nonce,
			GasPrice:   gasFeeCap,
			Gas:        gas,
			To:         req.To,
			Value:      req.ValueOrZero(),
			Data:       req.Data,
			AccessList: req.AccessList,
		})
	case 0x0:
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasFeeCap,
			Gas:      gas,
			To:       req.To,
			Value:    req.ValueOrZero(),
			Data:     req.Data,
		})
	default:
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:    new(big.Int).SetUint64(p.chainID),
			Nonce:      nonce,
			GasTipCap:  gasTipCap,
			GasFeeCap:  gasFeeCap,
			Gas:        gas,
			To:         req.To,
			Value:      req.ValueOrZero(),
			Data:       req.Data,
			AccessList: req.AccessList,
		})
	}
}

// signOrImpersonate realizes spec §4.4's final step: sign with a Matcher-issued synthetic key if from is registered
// for impersonation, otherwise tag the transaction with from as a literal, unsigned sender.
func (p *Preparer) signOrImpersonate(tx *types.Transaction, from common.Address) (PreparedTransaction, error) {
	if p.matcher.IsPublicKeyRegistered(from) {
		key, err := p.matcher.GetSimulationPrivateKey(from)
		if err != nil {
			return nil, simerrors.Wrap(err, simerrors.Precondition, "transaction preparer: issuing synthetic key")
		}
		signer := types.LatestSignerForChainID(new(big.Int).SetUint64(p.chainID))
		signed, err := types.SignTx(tx, signer, key)
		if err != nil {
			return nil, simerrors.Wrap(err, simerrors.Internal, "transaction preparer: signing with synthetic key")
		}
		return signedTransaction{tx: signed, sender: from}, nil
	}
	return unsignedTransaction{tx: tx, sender: from}, nil
}
