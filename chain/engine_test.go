package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/crytic/forksim/chain/overlay"
	"github.com/crytic/forksim/chain/prepare"
	"github.com/crytic/forksim/chain/signature"
	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/crytic/forksim/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForkBlock = 18_000_000

// fakeRemoteChain is a minimal remote backing store satisfying both overlay.RemoteChainAdapter and the engine's own
// remoteChain interface, standing in for a live JSON-RPC endpoint across the Engine-level tests.
type fakeRemoteChain struct {
	balances map[common.Address]*uint256.Int
}

func newFakeRemoteChain() *fakeRemoteChain {
	return &fakeRemoteChain{balances: make(map[common.Address]*uint256.Int)}
}

func (f *fakeRemoteChain) ChainID(ctx context.Context) (uint64, error) { return 1, nil }

func (f *fakeRemoteChain) HeadBlockNumber(ctx context.Context) (uint64, error) {
	return testForkBlock, nil
}

func (f *fakeRemoteChain) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	return &types.Header{Number: new(big.Int).SetUint64(number), Time: 1_700_000_000, GasLimit: 30_000_000}, nil
}

func (f *fakeRemoteChain) GetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	if b, ok := f.balances[addr]; ok {
		return b, nil
	}
	return uint256.NewInt(0), nil
}

func (f *fakeRemoteChain) GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeRemoteChain) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	return nil, nil
}

func (f *fakeRemoteChain) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}

func (f *fakeRemoteChain) SupportsProofs() bool { return false }

// newTestEngine builds an Engine directly against an in-memory fake remote, bypassing New (which requires a live
// JSON-RPC endpoint).
func newTestEngine(t *testing.T) (*Engine, *fakeRemoteChain) {
	t.Helper()
	remote := newFakeRemoteChain()
	logger := logging.GlobalLogger

	ovl := overlay.New(remote, testForkBlock, logger.NewSubLogger("unit", "overlay"))
	matcher := signature.NewMatcher()

	e := &Engine{
		forkContext: &chaintypes.ForkContext{
			ChainURL:        "test",
			ForkBlockNumber: testForkBlock,
			ChainID:         1,
			Common:          buildChainConfig(1, "shanghai"),
		},
		overlay:              ovl,
		matcher:              matcher,
		remote:               remote,
		blockCounter:         newBlockCounter(1_700_000_000),
		txIndex:              newTransactionIndex(),
		simulatedBlockHashes: make(map[uint64]common.Hash),
		head: head{
			hash:      common.Hash{},
			number:    testForkBlock,
			timestamp: 1_700_000_000,
			gasLimit:  30_000_000,
			coinbase:  common.Address{},
			baseFee:   big.NewInt(0),
		},
		logger: logger.NewSubLogger("unit", "sim-engine"),
		ctx:    context.Background(),
	}
	e.preparer = prepare.NewPreparer(ovl, e, matcher, 1)
	return e, remote
}

// impersonate registers a fresh synthetic key pair for addr so the Transaction Preparer signs on its behalf rather
// than tagging it unsigned.
func impersonate(t *testing.T, e *Engine) common.Address {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.FromECDSAPub(&key.PublicKey)
	addr, err := e.matcher.RegisterSimulationPublicKey(pub)
	require.NoError(t, err)
	return addr
}

// TestEngineExecuteValueTransferMinesBlock verifies a single fully-signed transfer executes, moves value between
// accounts, and advances the engine's synthetic block number.
func TestEngineExecuteValueTransferMinesBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	from := impersonate(t, e)
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")

	require.NoError(t, e.SetBalance(from, big.NewInt(1_000_000_000_000_000_000)))

	startBlock := e.CurrentBlockNumber()
	result, err := e.Execute(context.Background(), &chaintypes.TransactionRequest{
		From:  from,
		To:    &to,
		Value: big.NewInt(1_000),
	})
	require.NoError(t, err)

	assert.True(t, result.Receipt.Status)
	assert.NotNil(t, result.SimulatedBlockNumber)
	assert.Equal(t, startBlock+1, e.CurrentBlockNumber())
	assert.True(t, e.IsSimulatedBlock(e.CurrentBlockNumber()))
	assert.Equal(t, uint256.NewInt(1_000), e.overlay.GetBalance(to))

	indexed := e.GetTransactionResult(result.Hash)
	require.NotNil(t, indexed)
	assert.Equal(t, result.Hash, indexed.Hash)
}

// TestEngineCallDoesNotMutateOverlay verifies a static call's balance movement is always reverted, regardless of
// success, per spec's read-only call semantics.
func TestEngineCallDoesNotMutateOverlay(t *testing.T) {
	e, _ := newTestEngine(t)
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	require.NoError(t, e.SetBalance(from, big.NewInt(1_000_000_000_000_000_000)))

	result, err := e.Call(context.Background(), &chaintypes.TransactionRequest{
		From:  from,
		To:    &to,
		Value: big.NewInt(1_000),
	})
	require.NoError(t, err)
	assert.False(t, result.Failed)

	assert.Equal(t, uint256.NewInt(0), e.overlay.GetBalance(to))
}

// TestEngineExecuteBundleAtomicRevertsAll verifies that when one transaction in a bundle fails, every transaction's
// state change in that bundle is undone, not just the failing one's.
func TestEngineExecuteBundleAtomicRevertsAll(t *testing.T) {
	e, _ := newTestEngine(t)
	funded := impersonate(t, e)
	unfunded := impersonate(t, e)
	recipient1 := common.HexToAddress("0x4444444444444444444444444444444444444444")
	recipient2 := common.HexToAddress("0x5555555555555555555555555555555555555555")

	require.NoError(t, e.SetBalance(funded, big.NewInt(1_000_000_000_000_000_000)))
	// unfunded is left with a zero balance, so its transfer below will fail.

	gas := uint64(21_000)
	results, err := e.ExecuteBundle(context.Background(), []*chaintypes.TransactionRequest{
		{From: funded, To: &recipient1, Value: big.NewInt(1_000), Gas: &gas},
		{From: unfunded, To: &recipient2, Value: big.NewInt(1_000), Gas: &gas},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[1].Receipt.Status)
	assert.Nil(t, results[0].SimulatedBlockNumber, "bundle reverted, so no block should have been mined")
	assert.Equal(t, uint256.NewInt(0), e.overlay.GetBalance(recipient1), "first transaction's effect must be undone by the bundle's atomic revert")
}

// TestEngineExecuteRevertCarriesDecodedReason verifies a call into a contract that REVERTs with no return data
// surfaces the decoded "require(false)" reason on its receipt (spec §4.5), rather than raw, undecoded return data.
func TestEngineExecuteRevertCarriesDecodedReason(t *testing.T) {
	e, _ := newTestEngine(t)
	from := impersonate(t, e)
	target := common.HexToAddress("0x6666666666666666666666666666666666666666")
	// PUSH1 0x00 PUSH1 0x00 REVERT: reverts unconditionally with empty return data.
	e.overlay.SetCode(target, []byte{0x60, 0x00, 0x60, 0x00, 0xfd})

	require.NoError(t, e.SetBalance(from, big.NewInt(1_000_000_000_000_000_000)))

	gas := uint64(100_000)
	result, err := e.Execute(context.Background(), &chaintypes.TransactionRequest{From: from, To: &target, Gas: &gas})
	require.NoError(t, err)
	assert.False(t, result.Receipt.Status)
	assert.Equal(t, "require(false)", result.Receipt.Error)
}

// TestEngineExecuteLogEmittingTransactionPopulatesBloom verifies a successful transaction that emits a log carries
// both the decoded Log and a Bloom filter that actually matches the emitting address, rather than a always-nil
// placeholder.
func TestEngineExecuteLogEmittingTransactionPopulatesBloom(t *testing.T) {
	e, _ := newTestEngine(t)
	from := impersonate(t, e)
	target := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	// PUSH1 0x00 PUSH1 0x00 LOG0: emits one log with no topics and no data.
	e.overlay.SetCode(target, []byte{0x60, 0x00, 0x60, 0x00, 0xa0})

	require.NoError(t, e.SetBalance(from, big.NewInt(1_000_000_000_000_000_000)))

	gas := uint64(100_000)
	result, err := e.Execute(context.Background(), &chaintypes.TransactionRequest{From: from, To: &target, Gas: &gas})
	require.NoError(t, err)

	require.True(t, result.Receipt.Status)
	require.Len(t, result.Receipt.Logs, 1)
	assert.Equal(t, target, result.Receipt.Logs[0].Address)
	assert.True(t, result.Receipt.Bloom.Test(target.Bytes()), "bloom must match the address that emitted the log")
}

// TestEngineExecuteTypedTransactionRecoversImpersonatedSender verifies ExecuteTypedTransaction, given a raw
// transaction signed with a Signature Matcher-issued synthetic key and an Engine.Signer()-wrapped signer, runs as
// the impersonated address rather than the synthetic key's own — the ecrecover substitution spec names as the
// mechanism behind impersonation on the raw/externally-signed transaction path.
func TestEngineExecuteTypedTransactionRecoversImpersonatedSender(t *testing.T) {
	e, _ := newTestEngine(t)
	impersonated := impersonate(t, e)
	syntheticKey, err := e.matcher.GetSimulationPrivateKey(impersonated)
	require.NoError(t, err)

	to := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	require.NoError(t, e.SetBalance(impersonated, big.NewInt(1_000_000_000_000_000_000)))

	baseSigner := types.LatestSignerForChainID(big.NewInt(1))
	tx := types.MustSignNewTx(syntheticKey, baseSigner, &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(1_000_000_000),
		Gas:       21_000,
		To:        &to,
		Value:     big.NewInt(1_000),
	})

	// Recovering against the bare base signer (no impersonation substitution) must NOT already yield the
	// impersonated address, or this test would not be exercising the substitution at all.
	rawSender, err := types.Sender(baseSigner, tx)
	require.NoError(t, err)
	assert.NotEqual(t, impersonated, rawSender)

	result, err := e.ExecuteTypedTransaction(context.Background(), e.Signer(), tx)
	require.NoError(t, err)

	assert.True(t, result.Receipt.Status)
	assert.Equal(t, uint256.NewInt(1_000), e.overlay.GetBalance(to))
}

// TestEngineExecuteInsufficientFundsFailsWholeTransaction verifies a transaction whose sender cannot cover the gas
// cost fails with a non-empty error rather than panicking or silently succeeding.
func TestEngineExecuteInsufficientFundsFailsWholeTransaction(t *testing.T) {
	e, _ := newTestEngine(t)
	from := common.HexToAddress("0x7777777777777777777777777777777777777777")
	to := common.HexToAddress("0x8888888888888888888888888888888888888888")
	gas := uint64(21_000)

	result, err := e.Execute(context.Background(), &chaintypes.TransactionRequest{
		From: from, To: &to, Value: big.NewInt(1), Gas: &gas,
	})
	require.NoError(t, err)
	assert.False(t, result.Receipt.Status)
	assert.NotEmpty(t, result.Receipt.Error)
}
