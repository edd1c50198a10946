package signature

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignerRecoversImpersonatedSender verifies a transaction signed with a Matcher-issued synthetic key recovers,
// under the Signer decorator, to the address it impersonates rather than the synthetic key's own address.
func TestSignerRecoversImpersonatedSender(t *testing.T) {
	m := NewMatcher()
	impersonated := registerRandomKey(t, m)
	syntheticKey, err := m.GetSimulationPrivateKey(impersonated)
	require.NoError(t, err)

	base := types.LatestSignerForChainID(big.NewInt(1))
	tx := types.MustSignNewTx(syntheticKey, base, &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(1),
		Gas:       21_000,
		To:        &common.Address{0x01},
	})

	signer := NewSigner(base, m)
	sender, err := signer.Sender(tx)
	require.NoError(t, err)
	assert.Equal(t, impersonated, sender)
}

// TestSignerPassesThroughGenuineSignature verifies a transaction signed by a key with no reverse mapping registered
// recovers exactly as it would under the bare wrapped signer — real signatures are never substituted.
func TestSignerPassesThroughGenuineSignature(t *testing.T) {
	m := NewMatcher()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	genuineAddr := crypto.PubkeyToAddress(key.PublicKey)

	base := types.LatestSignerForChainID(big.NewInt(1))
	tx := types.MustSignNewTx(key, base, &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(1),
		Gas:       21_000,
		To:        &common.Address{0x01},
	})

	signer := NewSigner(base, m)
	sender, err := signer.Sender(tx)
	require.NoError(t, err)
	assert.Equal(t, genuineAddr, sender)
}

// TestSignerEqual verifies Equal distinguishes signers by both matcher identity and wrapped base signer.
func TestSignerEqual(t *testing.T) {
	m1 := NewMatcher()
	m2 := NewMatcher()
	base := types.LatestSignerForChainID(big.NewInt(1))
	otherBase := types.LatestSignerForChainID(big.NewInt(2))

	a := NewSigner(base, m1)
	b := NewSigner(base, m1)
	c := NewSigner(base, m2)
	d := NewSigner(otherBase, m1)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(base))
}
