package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EmptyCodeHash is the keccak256 hash of an empty byte string, the sentinel the EVM uses to mean "this address has
// no code". Some remote endpoints report a zero hash instead of this value for EOAs; the overlay sanitizes that case
// on the way out of GetAccount (see Overlay.sanitizeCodeHash).
var EmptyCodeHash = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// EmptyStorageRootHash is keccak256("") as well, used as the storageRoot of an account synthesized from the
// balance/nonce/code fallback triplet, since the real storage root cannot be recovered without a Merkle proof
// (spec §4.2, §9: "won't work for contract accounts").
var EmptyStorageRootHash = EmptyCodeHash

// Account mirrors the account data spec §3 describes: balance, nonce, and the two roots the EVM consults to decide
// whether an address carries code and what its storage looks like.
type Account struct {
	Address     common.Address
	Balance     *uint256.Int
	Nonce       uint64
	CodeHash    common.Hash
	StorageRoot common.Hash
}

// NewEmptyAccount returns the zero-value account the overlay hands back for addresses it (and the remote chain) has
// never seen: zero balance, zero nonce, empty code hash, empty storage root.
func NewEmptyAccount(address common.Address) *Account {
	return &Account{
		Address:     address,
		Balance:     uint256.NewInt(0),
		Nonce:       0,
		CodeHash:    EmptyCodeHash,
		StorageRoot: EmptyStorageRootHash,
	}
}

// HasCode returns whether the account is considered a contract account.
func (a *Account) HasCode() bool {
	return a.CodeHash != (common.Hash{}) && a.CodeHash != EmptyCodeHash
}

// CodeEntry is a (address, bytecode) pair recorded in the overlay's deployed-code registry whenever code is written
// during simulation (spec §3, §4.2).
type CodeEntry struct {
	Address common.Address
	Code    []byte
}

// StorageSlot is a fixed-width (address, key) -> value triple.
type StorageSlot struct {
	Address common.Address
	Key     common.Hash
	Value   common.Hash
}
