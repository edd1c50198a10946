package overlay

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a single reversible mutation recorded by Overlay. Grounded in the general shape of the teacher's
// per-snapshot undo bookkeeping (chain/fork/remote_state_provider.go's stateObjBySnapshot/stateSlotBySnapshot maps),
// generalized here into an explicit journal of closures rather than a snapshot-indexed map of prior values.
type journalEntry interface {
	revert(o *Overlay)
}

type journal []journalEntry

type balanceChange struct {
	addr common.Address
	prev *uint256.Int
}

func (e balanceChange) revert(o *Overlay) {
	o.getOrCreateAccount(e.addr).Balance = e.prev
}

type nonceChange struct {
	addr common.Address
	prev uint64
}

func (e nonceChange) revert(o *Overlay) {
	o.getOrCreateAccount(e.addr).Nonce = e.prev
}

type codeChange struct {
	addr     common.Address
	prevHash common.Hash
}

func (e codeChange) revert(o *Overlay) {
	o.getOrCreateAccount(e.addr).CodeHash = e.prevHash
}

type storageChange struct {
	addr common.Address
	key  common.Hash
	prev common.Hash
}

func (e storageChange) revert(o *Overlay) {
	if slots, ok := o.storage[e.addr]; ok {
		slots[e.key] = e.prev
	}
}

type transientStorageChange struct {
	addr common.Address
	key  common.Hash
	prev common.Hash
}

func (e transientStorageChange) revert(o *Overlay) {
	if slots, ok := o.transient[e.addr]; ok {
		slots[e.key] = e.prev
	}
}

type refundChange struct {
	prev uint64
}

func (e refundChange) revert(o *Overlay) {
	o.refund = e.prev
}

type selfDestructChange struct {
	addr common.Address
	prev bool
}

func (e selfDestructChange) revert(o *Overlay) {
	if e.prev {
		o.selfDestructed[e.addr] = true
	} else {
		delete(o.selfDestructed, e.addr)
	}
}

type createAccountChange struct {
	addr common.Address
}

func (e createAccountChange) revert(o *Overlay) {
	delete(o.accounts, e.addr)
	delete(o.storage, e.addr)
}

type accessListAddrChange struct {
	addr common.Address
}

func (e accessListAddrChange) revert(o *Overlay) {
	delete(o.accessAddrs, e.addr)
}

type accessListSlotChange struct {
	addr common.Address
	slot common.Hash
}

func (e accessListSlotChange) revert(o *Overlay) {
	if slots, ok := o.accessSlots[e.addr]; ok {
		delete(slots, e.slot)
	}
}

type logChange struct{}

func (e logChange) revert(o *Overlay) {
	o.logs = o.logs[:len(o.logs)-1]
}
