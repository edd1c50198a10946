// Package signature implements the Signature Matcher (spec §4.3): a mechanism to accept transactions "from"
// arbitrary public addresses the simulator does not hold private keys for, by substituting a synthetic key pair and
// rewriting signature recovery so the EVM observes the intended sender.
package signature

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/crytic/forksim/chain/simerrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Matcher owns the three maps spec §4.3 names. Every method holds mu while it reads or writes them, so concurrent
// calls are serialized.
type Matcher struct {
	mu sync.Mutex

	// impersonatedPublicKeys maps an impersonated address to the public key bytes registered for it.
	impersonatedPublicKeys map[common.Address][]byte

	// syntheticPrivateKeys maps an impersonated address to the synthetic ECDSA key pair issued for it.
	syntheticPrivateKeys map[common.Address]*ecdsa.PrivateKey

	// syntheticAddressToImpersonated maps a synthetic signer's address back to the address it impersonates.
	syntheticAddressToImpersonated map[common.Address]common.Address
}

// NewMatcher constructs an empty Signature Matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		impersonatedPublicKeys:         make(map[common.Address][]byte),
		syntheticPrivateKeys:           make(map[common.Address]*ecdsa.PrivateKey),
		syntheticAddressToImpersonated: make(map[common.Address]common.Address),
	}
}

// RegisterSimulationPublicKey derives the address from publicKey and records the mapping, per spec §4.3's
// registerSimulationPublicKey.
func (m *Matcher) RegisterSimulationPublicKey(publicKey []byte) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return common.Address{}, simerrors.Wrap(err, simerrors.InvalidArgument, "signature matcher: invalid public key")
	}
	addr := crypto.PubkeyToAddress(*pub)
	m.impersonatedPublicKeys[addr] = publicKey
	return addr, nil
}

// IsPublicKeyRegistered reports whether addr has a registered public key.
func (m *Matcher) IsPublicKeyRegistered(addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.impersonatedPublicKeys[addr]
	return ok
}

// GetSimulationPrivateKey returns the synthetic private key for addr, generating and recording one on first use.
// Fails with a Precondition-flavored error if addr's public key was never registered (spec §4.3).
func (m *Matcher) GetSimulationPrivateKey(addr common.Address) (*ecdsa.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.impersonatedPublicKeys[addr]; !ok {
		return nil, simerrors.New(simerrors.Precondition, fmt.Sprintf("signature matcher: %s has no registered public key", addr))
	}
	if key, ok := m.syntheticPrivateKeys[addr]; ok {
		return key, nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.Internal, "signature matcher: generating synthetic key pair")
	}
	m.syntheticPrivateKeys[addr] = key
	m.syntheticAddressToImpersonated[crypto.PubkeyToAddress(key.PublicKey)] = addr
	return key, nil
}

// resolveImpersonation looks up the impersonated address and registered public key for a synthetic signer address.
// found=false means syntheticAddr has no reverse mapping at all (a genuine, non-impersonated signer) — not an
// error. A non-nil error means a reverse mapping exists with no corresponding registered public key, the
// consistency breach spec §4.3 calls out as an Internal-flavored failure.
func (m *Matcher) resolveImpersonation(syntheticAddr common.Address) (impersonated common.Address, publicKey []byte, found bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	impersonated, found = m.syntheticAddressToImpersonated[syntheticAddr]
	if !found {
		return common.Address{}, nil, false, nil
	}
	publicKey, ok := m.impersonatedPublicKeys[impersonated]
	if !ok {
		return common.Address{}, nil, true, simerrors.New(simerrors.Internal, fmt.Sprintf("signature matcher: synthetic address %s maps to %s, which has no registered public key", syntheticAddr, impersonated))
	}
	return impersonated, publicKey, true, nil
}
