package prepare

import (
	"context"
	"math/big"
	"testing"

	"github.com/crytic/forksim/chain/signature"
	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNonceSource is a minimal AccountNonceSource backed by an in-memory map.
type fakeNonceSource struct {
	nonces map[common.Address]uint64
}

func (f *fakeNonceSource) GetNonce(addr common.Address) uint64 {
	return f.nonces[addr]
}

// fakeEstimationRunner is a minimal EstimationRunner that reports a fixed gas figure, optionally simulating a
// revert.
type fakeEstimationRunner struct {
	gasUsed    uint64
	reverted   bool
	returnData []byte
	err        error
}

func (f *fakeEstimationRunner) RunForEstimation(ctx context.Context, tx *types.Transaction, from common.Address) (uint64, bool, []byte, error) {
	return f.gasUsed, f.reverted, f.returnData, f.err
}

func newTestPreparer(runner *fakeEstimationRunner) (*Preparer, *fakeNonceSource) {
	nonces := &fakeNonceSource{nonces: make(map[common.Address]uint64)}
	matcher := signature.NewMatcher()
	return NewPreparer(nonces, runner, matcher, 1), nonces
}

// TestPrepareRejectsZeroAddress verifies a request with the zero address as sender is rejected before any estimation
// or signing is attempted.
func TestPrepareRejectsZeroAddress(t *testing.T) {
	p, _ := newTestPreparer(&fakeEstimationRunner{})
	_, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{})
	require.Error(t, err)
}

// TestPrepareUnregisteredSenderProducesUnsignedTagged verifies a request from an address with no registered public
// key is tagged, not signed (spec §4.4's impersonation fallback).
func TestPrepareUnregisteredSenderProducesUnsignedTagged(t *testing.T) {
	p, _ := newTestPreparer(&fakeEstimationRunner{gasUsed: 21000})
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ptx, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, To: &to})
	require.NoError(t, err)

	assert.False(t, ptx.IsSigned())
	assert.Equal(t, from, ptx.Sender())
}

// TestPrepareRegisteredSenderProducesSignedTransaction verifies a request from a registered public key's address is
// signed with its synthetic key, and that types.Sender recovers the same address back out.
func TestPrepareRegisteredSenderProducesSignedTransaction(t *testing.T) {
	matcher := signature.NewMatcher()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.FromECDSAPub(&key.PublicKey)
	from, err := matcher.RegisterSimulationPublicKey(pub)
	require.NoError(t, err)

	nonces := &fakeNonceSource{nonces: make(map[common.Address]uint64)}
	p := NewPreparer(nonces, &fakeEstimationRunner{gasUsed: 21000}, matcher, 1)

	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	ptx, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, To: &to})
	require.NoError(t, err)

	assert.True(t, ptx.IsSigned())
	assert.Equal(t, from, ptx.Sender())

	signer := signature.NewSigner(types.LatestSignerForChainID(big.NewInt(1)), matcher)
	recovered, err := types.Sender(signer, ptx.AsTransaction())
	require.NoError(t, err)
	assert.Equal(t, from, recovered)
}

// TestPrepareEstimatesGasWhenOmitted verifies Prepare consults the EstimationRunner for a gas limit when the
// request does not supply one.
func TestPrepareEstimatesGasWhenOmitted(t *testing.T) {
	runner := &fakeEstimationRunner{gasUsed: 54321}
	p, _ := newTestPreparer(runner)
	from := common.HexToAddress("0x4444444444444444444444444444444444444444")
	to := common.HexToAddress("0x5555555555555555555555555555555555555555")

	ptx, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, uint64(54321), ptx.AsTransaction().Gas())
}

// TestPrepareSurfacesEstimationRevert verifies a reverted gas estimation is surfaced as an error rather than
// silently producing a zero-gas transaction.
func TestPrepareSurfacesEstimationRevert(t *testing.T) {
	runner := &fakeEstimationRunner{reverted: true, returnData: nil}
	p, _ := newTestPreparer(runner)
	from := common.HexToAddress("0x6666666666666666666666666666666666666666")
	to := common.HexToAddress("0x7777777777777777777777777777777777777777")

	_, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, To: &to})
	require.Error(t, err)
}

// TestPrepareUsesExplicitNonceOverAccountNonceSource verifies an explicitly supplied nonce is used as-is, without
// consulting the nonce source.
func TestPrepareUsesExplicitNonceOverAccountNonceSource(t *testing.T) {
	p, nonces := newTestPreparer(&fakeEstimationRunner{gasUsed: 21000})
	from := common.HexToAddress("0x8888888888888888888888888888888888888888")
	to := common.HexToAddress("0x9999999999999999999999999999999999999999")
	nonces.nonces[from] = 5

	explicit := uint64(42)
	ptx, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, To: &to, Nonce: &explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, ptx.AsTransaction().Nonce())
}

// TestPrepareDefaultsCreationGasWithoutEstimation verifies a contract-creation request (no `to`) skips estimation
// entirely and uses the fixed creation gas default.
func TestPrepareDefaultsCreationGasWithoutEstimation(t *testing.T) {
	runner := &fakeEstimationRunner{err: assertNeverCalled{}}
	p, _ := newTestPreparer(runner)
	from := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	ptx, err := p.Prepare(context.Background(), &chaintypes.TransactionRequest{From: from, Data: []byte{0x60, 0x00}})
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultCreationGas), ptx.AsTransaction().Gas())
}

// assertNeverCalled is an error that should never actually be observed; its presence in a test failure means the
// estimation runner was invoked when it should not have been.
type assertNeverCalled struct{}

func (assertNeverCalled) Error() string { return "estimation runner was called unexpectedly" }
