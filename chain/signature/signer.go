package signature

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer decorates a types.Signer so that transactions signed with a Matcher-issued synthetic key recover to the
// address they impersonate, while every other transaction recovers exactly as it would under the wrapped signer.
// This realizes spec §4.3's customCrypto.ecrecover as a standard go-ethereum Signer decorator — a first-class
// extension point — instead of a closure injected into an internal crypto hook (see DESIGN.md).
type Signer struct {
	types.Signer
	matcher *Matcher
}

// NewSigner wraps base (Engine.Signer passes types.LatestSignerForChainID for the fork's chain ID) with matcher's
// impersonation lookup.
func NewSigner(base types.Signer, matcher *Matcher) *Signer {
	return &Signer{Signer: base, matcher: matcher}
}

// Sender performs real ECDSA recovery via the wrapped signer, then — if the recovered address has a reverse
// mapping in the matcher — returns the impersonated address instead. This is the substitution that lets the EVM
// observe an "impersonated" sender despite the transaction having been signed by a different, synthetic key.
func (s *Signer) Sender(tx *types.Transaction) (common.Address, error) {
	recovered, err := s.Signer.Sender(tx)
	if err != nil {
		return common.Address{}, err
	}

	impersonated, _, found, err := s.matcher.resolveImpersonation(recovered)
	if err != nil {
		return common.Address{}, err
	}
	if !found {
		return recovered, nil
	}
	return impersonated, nil
}

// Equal reports whether other is also a signature.Signer wrapping an equal base signer for the same matcher.
func (s *Signer) Equal(other types.Signer) bool {
	o, ok := other.(*Signer)
	if !ok {
		return false
	}
	return s.matcher == o.matcher && s.Signer.Equal(o.Signer)
}
