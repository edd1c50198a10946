// Package chain implements the Simulation Engine (spec §4.1), the top-level façade that owns the Overlay State
// Manager, the Signature Matcher, the Transaction Preparer, the synthetic block counter, and the transaction index.
package chain

import (
	"context"
	"math/big"

	"github.com/crytic/forksim/chain/config"
	"github.com/crytic/forksim/chain/fork"
	"github.com/crytic/forksim/chain/overlay"
	"github.com/crytic/forksim/chain/prepare"
	"github.com/crytic/forksim/chain/signature"
	"github.com/crytic/forksim/chain/simerrors"
	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/crytic/forksim/events"
	"github.com/crytic/forksim/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// remoteChain is the subset of the Remote Chain Adapter's capability the Engine itself depends on directly (header
// lookups for BLOCKHASH and the construction-time chain ID/head resolution), declared here so package chain never
// imports package fork concretely beyond construction.
type remoteChain interface {
	ChainID(ctx context.Context) (uint64, error)
	HeadBlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// head tracks the engine's current canonical head — either the real fork header (no simulated blocks mined yet) or
// the most recently synthesized block — the parent that the next fully-signed bundle's synthesized block builds on.
type head struct {
	hash      common.Hash
	number    uint64
	timestamp uint64
	gasLimit  uint64
	coinbase  common.Address
	baseFee   *big.Int
}

// Engine is the Simulation Engine. Per spec §5 it assumes a single logical caller; no internal mutex guards its
// operations.
type Engine struct {
	forkContext *chaintypes.ForkContext
	overlay     *overlay.Overlay
	matcher     *signature.Matcher
	preparer    *prepare.Preparer
	remote      remoteChain

	blockCounter         blockCounter
	txIndex              *transactionIndex
	simulatedBlockHashes map[uint64]common.Hash
	head                 head

	logger *logging.Logger
	ctx    context.Context

	onBlockMined     events.EventEmitter[BlockMinedEvent]
	onBundleReverted events.EventEmitter[BundleRevertedEvent]
}

// New constructs a Simulation Engine (spec §4.1's create). It resolves chainId and the fork block (defaulting to the
// remote head) and performs the EVM's mandatory chain-id/head lookups; no other remote call is made eagerly.
func New(ctx context.Context, cfg *config.EngineConfig, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.GlobalLogger
	}

	adapter, err := fork.NewAdapter(cfg.Fork.RpcUrl, cfg.Fork.RpcBlock, cfg.Fork.PoolSize)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: constructing remote chain adapter")
	}

	chainID, err := adapter.ChainID(ctx)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: fetching chain id")
	}

	forkBlock := cfg.Fork.RpcBlock
	if forkBlock == 0 {
		forkBlock, err = adapter.HeadBlockNumber(ctx)
		if err != nil {
			return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: fetching head block number")
		}
	}

	header, err := adapter.HeaderByNumber(ctx, forkBlock)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Upstream, "simulation engine: fetching fork head header")
	}

	forkCtx := &chaintypes.ForkContext{
		ChainURL:        cfg.Fork.RpcUrl,
		ForkBlockNumber: forkBlock,
		ChainID:         chainID,
		Common:          buildChainConfig(chainID, cfg.Hardfork),
	}

	baseFee := big.NewInt(0)
	if header.BaseFee != nil {
		baseFee = new(big.Int).Set(header.BaseFee)
	}

	ovl := overlay.New(adapter, forkBlock, logger.NewSubLogger("unit", "overlay"))
	matcher := signature.NewMatcher()

	e := &Engine{
		forkContext:          forkCtx,
		overlay:              ovl,
		matcher:              matcher,
		remote:               adapter,
		blockCounter:         newBlockCounter(header.Time),
		txIndex:              newTransactionIndex(),
		simulatedBlockHashes: make(map[uint64]common.Hash),
		head: head{
			hash:      header.Hash(),
			number:    forkBlock,
			timestamp: header.Time,
			gasLimit:  header.GasLimit,
			coinbase:  header.Coinbase,
			baseFee:   baseFee,
		},
		logger: logger.NewSubLogger("unit", "sim-engine"),
		ctx:    ctx,
	}
	e.preparer = prepare.NewPreparer(ovl, e, matcher, chainID)
	e.simulatedBlockHashes[forkBlock] = header.Hash()

	return e, nil
}

func (e *Engine) context() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

// OnBlockMined subscribes callback to every BlockMinedEvent this engine publishes.
func (e *Engine) OnBlockMined(callback events.EventHandler[BlockMinedEvent]) {
	e.onBlockMined.Subscribe(callback)
}

// OnBundleReverted subscribes callback to every BundleRevertedEvent this engine publishes.
func (e *Engine) OnBundleReverted(callback events.EventHandler[BundleRevertedEvent]) {
	e.onBundleReverted.Subscribe(callback)
}

// Signer returns the engine's impersonation-aware types.Signer: real ECDSA recovery via go-ethereum, substituted
// with the impersonated address whenever the recovered address is a Signature Matcher-issued synthetic one. This is
// what ExecuteTypedTransaction's raw-transaction path recovers tx's sender with, so a transaction externally signed
// with a synthetic key (handed out by ImpersonateAccount) runs as the account it impersonates.
func (e *Engine) Signer() types.Signer {
	base := types.LatestSignerForChainID(new(big.Int).SetUint64(e.forkContext.ChainID))
	return signature.NewSigner(base, e.matcher)
}

// ImpersonateAccount registers publicKey with the Signature Matcher and returns the synthetic private key bytes
// (spec §4.1's impersonateAccount).
func (e *Engine) ImpersonateAccount(publicKey []byte) ([]byte, error) {
	addr, err := e.matcher.RegisterSimulationPublicKey(publicKey)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.InvalidArgument, "simulation engine: registering impersonated public key")
	}
	key, err := e.matcher.GetSimulationPrivateKey(addr)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Precondition, "simulation engine: issuing synthetic key")
	}
	return crypto.FromECDSA(key), nil
}

// SetBalance is a direct overlay write, no checkpoint (spec §4.1).
func (e *Engine) SetBalance(addr common.Address, balance *big.Int) error {
	b, overflow := uint256.FromBig(balance)
	if overflow {
		return simerrors.New(simerrors.InvalidArgument, "simulation engine: balance overflows 256 bits")
	}
	e.overlay.SetBalance(addr, b)
	return nil
}

// SetStorage is a direct overlay write, no checkpoint (spec §4.1).
func (e *Engine) SetStorage(addr common.Address, key, value common.Hash) {
	e.overlay.SetStorageDirect(addr, key, value)
}

// GetTransaction returns the typed transaction indexed under hash, or nil on a miss (spec §4.1).
func (e *Engine) GetTransaction(hash string) *types.Transaction {
	return e.txIndex.getTransaction(hash)
}

// GetTransactionResult returns the result indexed under hash, or nil on a miss (spec §4.1).
func (e *Engine) GetTransactionResult(hash string) *chaintypes.TxResult {
	return e.txIndex.getResult(hash)
}

// ForkContext exposes the engine's immutable fork context.
func (e *Engine) ForkContext() *chaintypes.ForkContext {
	return e.forkContext
}

// CurrentBlockNumber returns the engine's current canonical head block number, in fork-relative external numbering
// (spec §4.1's block-numbering scheme).
func (e *Engine) CurrentBlockNumber() uint64 {
	return resolve(e.forkContext.ForkBlockNumber, e.blockCounter.current)
}

// IsSimulatedBlock reports whether externalNumber addresses a block synthesized by this engine rather than the
// remote chain's own history (spec §4.1).
func (e *Engine) IsSimulatedBlock(externalNumber uint64) bool {
	return isSimulated(e.forkContext.ForkBlockNumber, externalNumber)
}

// buildChainConfig constructs a params.ChainConfig for chainID under the named hardfork. Only "shanghai" is
// recognized (spec §4.1's default); every pre-merge fork block is activated at genesis and the engine runs fully
// post-merge, matching a simulator that never replays pre-merge history.
func buildChainConfig(chainID uint64, hardfork string) *params.ChainConfig {
	zero := big.NewInt(0)
	shanghaiTime := uint64(0)
	cfg := &params.ChainConfig{
		ChainID:                       new(big.Int).SetUint64(chainID),
		HomesteadBlock:                zero,
		EIP150Block:                   zero,
		EIP155Block:                   zero,
		EIP158Block:                   zero,
		ByzantiumBlock:                zero,
		ConstantinopleBlock:           zero,
		PetersburgBlock:               zero,
		IstanbulBlock:                 zero,
		MuirGlacierBlock:              zero,
		BerlinBlock:                   zero,
		LondonBlock:                   zero,
		ArrowGlacierBlock:             zero,
		GrayGlacierBlock:              zero,
		MergeNetsplitBlock:            zero,
		TerminalTotalDifficulty:       zero,
		TerminalTotalDifficultyPassed: true,
	}
	if hardfork == "shanghai" || hardfork == "" {
		cfg.ShanghaiTime = &shanghaiTime
	}
	return cfg
}
