package overlay

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// This file implements core/vm.StateDB. Every mutating method records a journalEntry so an enclosing checkpoint can
// undo it; Overlay's own checkpoint/commit/revert (overlay.go) drives this journal, not go-ethereum's Snapshot/
// RevertToSnapshot, though both are exposed since the EVM itself calls Snapshot/RevertToSnapshot around CALL/CREATE.

// CreateAccount journals a createAccountChange and makes sure an account exists at addr. An account already cached
// at addr keeps its balance, nonce and code; only a missing one is created empty.
func (o *Overlay) CreateAccount(addr common.Address) {
	o.journal = append(o.journal, createAccountChange{addr: addr})
	o.getOrCreateAccount(addr)
}

// CreateContract marks addr as a contract account. Overlay tracks contract-ness implicitly via CodeHash, so this is
// a no-op beyond ensuring the account exists.
func (o *Overlay) CreateContract(addr common.Address) {
	o.getOrCreateAccount(addr)
}

func (o *Overlay) GetBalance(addr common.Address) *uint256.Int {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil {
		o.logger.Warn("overlay: falling back to zero balance for", addr, "after remote fetch failure:", err)
		return uint256.NewInt(0)
	}
	return account.Balance
}

func (o *Overlay) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	account, _ := o.GetAccount(o.context(), addr)
	if account == nil {
		account = o.getOrCreateAccount(addr)
	}
	o.journal = append(o.journal, balanceChange{addr: addr, prev: account.Balance.Clone()})
	account.Balance = new(uint256.Int).Add(account.Balance, amount)
}

func (o *Overlay) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	account, _ := o.GetAccount(o.context(), addr)
	if account == nil {
		account = o.getOrCreateAccount(addr)
	}
	o.journal = append(o.journal, balanceChange{addr: addr, prev: account.Balance.Clone()})
	account.Balance = new(uint256.Int).Sub(account.Balance, amount)
}

func (o *Overlay) GetNonce(addr common.Address) uint64 {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil {
		return 0
	}
	return account.Nonce
}

func (o *Overlay) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	account := o.getOrCreateAccount(addr)
	o.journal = append(o.journal, nonceChange{addr: addr, prev: account.Nonce})
	account.Nonce = nonce
}

func (o *Overlay) GetCodeHash(addr common.Address) common.Hash {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil {
		return common.Hash{}
	}
	return account.CodeHash
}

func (o *Overlay) GetCode(addr common.Address) []byte {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil || !account.HasCode() {
		return nil
	}
	if code, ok := o.code[account.CodeHash]; ok {
		return code
	}
	return nil
}

// SetCode writes addr's code both into the overlay and into the deployed-code registry, per spec §4.2's revert
// policy: the registry entry is never journaled and therefore survives a Revert.
func (o *Overlay) SetCode(addr common.Address, code []byte) {
	account := o.getOrCreateAccount(addr)
	o.journal = append(o.journal, codeChange{addr: addr, prevHash: account.CodeHash})

	hash := hashCode(code)
	account.CodeHash = hash
	o.code[hash] = code
	o.deployedContracts[addr] = code
}

func (o *Overlay) GetCodeSize(addr common.Address) int {
	return len(o.GetCode(addr))
}

func (o *Overlay) AddRefund(gas uint64) {
	o.journal = append(o.journal, refundChange{prev: o.refund})
	o.refund += gas
}

func (o *Overlay) SubRefund(gas uint64) {
	o.journal = append(o.journal, refundChange{prev: o.refund})
	if gas > o.refund {
		o.refund = 0
		return
	}
	o.refund -= gas
}

func (o *Overlay) GetRefund() uint64 {
	return o.refund
}

// GetCommittedState returns the same value as GetState, including any mutation recorded since the last commit.
// Overlay does not separately track pre-transaction snapshots of storage, so this degrades to GetState; acceptable because
// spec §4.2 does not require divergent committed-vs-current storage semantics beyond what checkpoint/revert already
// provides.
func (o *Overlay) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return o.GetState(addr, key)
}

func (o *Overlay) GetState(addr common.Address, key common.Hash) common.Hash {
	value, err := o.fetchStorageSlot(o.context(), addr, key)
	if err != nil {
		o.logger.Warn("overlay: falling back to zero slot for", addr, "after remote fetch failure:", err)
		return common.Hash{}
	}
	return value
}

func (o *Overlay) SetState(addr common.Address, key, value common.Hash) common.Hash {
	prev := o.storageSlot(addr, key)
	o.journal = append(o.journal, storageChange{addr: addr, key: key, prev: prev})
	o.setStorageSlot(addr, key, value)
	return prev
}

// GetStorageRoot always returns the empty-trie-of-nothing root recorded on the account, since Overlay never
// materializes a real trie (spec §4.2's account fallback populates storageRoot = keccak256("") and this
// implementation never diverges from that).
func (o *Overlay) GetStorageRoot(addr common.Address) common.Hash {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil {
		return common.Hash{}
	}
	return account.StorageRoot
}

func (o *Overlay) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	if slots, ok := o.transient[addr]; ok {
		return slots[key]
	}
	return common.Hash{}
}

func (o *Overlay) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := o.GetTransientState(addr, key)
	o.journal = append(o.journal, transientStorageChange{addr: addr, key: key, prev: prev})
	slots, ok := o.transient[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		o.transient[addr] = slots
	}
	slots[key] = value
}

func (o *Overlay) SelfDestruct(addr common.Address) uint256.Int {
	account, _ := o.GetAccount(o.context(), addr)
	var balance uint256.Int
	if account != nil {
		balance = *account.Balance
	}
	prev := o.selfDestructed[addr]
	o.journal = append(o.journal, selfDestructChange{addr: addr, prev: prev})
	o.selfDestructed[addr] = true
	if account != nil {
		o.journal = append(o.journal, balanceChange{addr: addr, prev: account.Balance.Clone()})
		account.Balance = uint256.NewInt(0)
	}
	return balance
}

func (o *Overlay) HasSelfDestructed(addr common.Address) bool {
	return o.selfDestructed[addr]
}

// SelfDestruct6780 implements EIP-6780: self-destruct only actually clears the account when it was created in the
// same transaction. Overlay does not currently track per-transaction creation scope, so it always performs the full
// self-destruct; this simplification is acceptable because spec §4.2 does not exercise
// post-Cancun selfdestruct-in-same-tx semantics.
func (o *Overlay) SelfDestruct6780(addr common.Address) (uint256.Int, bool) {
	balance := o.SelfDestruct(addr)
	return balance, true
}

func (o *Overlay) Exist(addr common.Address) bool {
	_, err := o.GetAccount(o.context(), addr)
	return err == nil
}

func (o *Overlay) Empty(addr common.Address) bool {
	account, err := o.GetAccount(o.context(), addr)
	if err != nil {
		return true
	}
	return account.Nonce == 0 && account.Balance.IsZero() && !account.HasCode()
}

func (o *Overlay) AddressInAccessList(addr common.Address) bool {
	return o.accessAddrs[addr]
}

func (o *Overlay) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	addrOk := o.accessAddrs[addr]
	slotOk := false
	if slots, ok := o.accessSlots[addr]; ok {
		slotOk = slots[slot]
	}
	return addrOk, slotOk
}

func (o *Overlay) AddAddressToAccessList(addr common.Address) {
	if o.accessAddrs[addr] {
		return
	}
	o.journal = append(o.journal, accessListAddrChange{addr: addr})
	o.accessAddrs[addr] = true
}

func (o *Overlay) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	o.AddAddressToAccessList(addr)
	slots, ok := o.accessSlots[addr]
	if !ok {
		slots = make(map[common.Hash]bool)
		o.accessSlots[addr] = slots
	}
	if slots[slot] {
		return
	}
	o.journal = append(o.journal, accessListSlotChange{addr: addr, slot: slot})
	slots[slot] = true
}

// Prepare implements EIP-2929/2930/3651 access-list warm-up at the start of a transaction.
func (o *Overlay) Prepare(rules params.Rules, sender, coinbase common.Address, dst *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	o.AddAddressToAccessList(sender)
	if dst != nil {
		o.AddAddressToAccessList(*dst)
	}
	for _, addr := range precompiles {
		o.AddAddressToAccessList(addr)
	}
	if rules.IsShanghai {
		o.AddAddressToAccessList(coinbase)
	}
	for _, entry := range txAccesses {
		o.AddAddressToAccessList(entry.Address)
		for _, key := range entry.StorageKeys {
			o.AddSlotToAccessList(entry.Address, key)
		}
	}
}

// Snapshot/RevertToSnapshot satisfy vm.StateDB for the EVM's own internal CALL/CREATE rollback; they are distinct
// from — but implemented in terms of — Overlay's own Checkpoint/Revert, since both describe "undo everything back
// to this journal length".
func (o *Overlay) Snapshot() int {
	return o.Checkpoint()
}

func (o *Overlay) RevertToSnapshot(id int) {
	for len(o.checkpoints) > 0 && o.checkpoints[len(o.checkpoints)-1] >= id {
		o.Revert()
	}
}

func (o *Overlay) AddLog(log *types.Log) {
	o.journal = append(o.journal, logChange{})
	o.logs = append(o.logs, log)
}

// Logs returns every log recorded since construction, in emission order.
func (o *Overlay) Logs() []*types.Log {
	return o.logs
}

// LogCount returns the number of logs recorded since construction — used by callers that need to slice out exactly
// the logs a single transaction emitted (chain.Engine's bundle execution).
func (o *Overlay) LogCount() int {
	return len(o.logs)
}

// AddPreimage is a documented no-op: Overlay does not maintain a preimage registry, since nothing in spec.md's
// scope (no persistence, no trie export) consumes SHA3 preimages.
func (o *Overlay) AddPreimage(common.Hash, []byte) {}

func hashCode(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}
