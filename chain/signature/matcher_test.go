package signature

import (
	"testing"

	"github.com/crytic/forksim/chain/simerrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerRandomKey generates a fresh ECDSA key pair and registers its public key, returning the derived address.
func registerRandomKey(t *testing.T, m *Matcher) common.Address {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.FromECDSAPub(&key.PublicKey)
	addr, err := m.RegisterSimulationPublicKey(pub)
	require.NoError(t, err)
	return addr
}

// TestRegisterAndIsRegistered verifies a registered public key's derived address reports as registered and an
// arbitrary address does not.
func TestRegisterAndIsRegistered(t *testing.T) {
	m := NewMatcher()
	addr := registerRandomKey(t, m)

	assert.True(t, m.IsPublicKeyRegistered(addr))
	assert.False(t, m.IsPublicKeyRegistered(common.Address{0x1}))
}

// TestRegisterInvalidPublicKey verifies a malformed public key is rejected with an InvalidArgument-flavored error.
func TestRegisterInvalidPublicKey(t *testing.T) {
	m := NewMatcher()
	_, err := m.RegisterSimulationPublicKey([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
	assert.True(t, simerrors.Is(err, simerrors.InvalidArgument))
}

// TestGetSimulationPrivateKeyUnregistered verifies requesting a synthetic key for an unregistered address fails with
// a Precondition-flavored error.
func TestGetSimulationPrivateKeyUnregistered(t *testing.T) {
	m := NewMatcher()
	_, err := m.GetSimulationPrivateKey(common.Address{0x42})
	require.Error(t, err)
	assert.True(t, simerrors.Is(err, simerrors.Precondition))
}

// TestGetSimulationPrivateKeyIsStableAndDistinct verifies repeated calls for the same registered address return the
// same synthetic key, while two distinct registered addresses get distinct synthetic keys.
func TestGetSimulationPrivateKeyIsStableAndDistinct(t *testing.T) {
	m := NewMatcher()
	addr1 := registerRandomKey(t, m)
	addr2 := registerRandomKey(t, m)

	key1a, err := m.GetSimulationPrivateKey(addr1)
	require.NoError(t, err)
	key1b, err := m.GetSimulationPrivateKey(addr1)
	require.NoError(t, err)
	assert.Equal(t, key1a, key1b)

	key2, err := m.GetSimulationPrivateKey(addr2)
	require.NoError(t, err)
	assert.NotEqual(t, key1a, key2)
}

// TestResolveImpersonationRoundTrip verifies a synthetic signer's address resolves back to the impersonated address
// and its registered public key, while an address with no reverse mapping reports found=false with no error.
func TestResolveImpersonationRoundTrip(t *testing.T) {
	m := NewMatcher()
	addr := registerRandomKey(t, m)
	key, err := m.GetSimulationPrivateKey(addr)
	require.NoError(t, err)
	syntheticAddr := crypto.PubkeyToAddress(key.PublicKey)

	impersonated, pub, found, err := m.resolveImpersonation(syntheticAddr)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, addr, impersonated)
	assert.NotEmpty(t, pub)

	_, _, found, err = m.resolveImpersonation(common.Address{0x99})
	require.NoError(t, err)
	assert.False(t, found)
}
