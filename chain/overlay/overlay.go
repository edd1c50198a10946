// Package overlay implements the Overlay State Manager (spec §4.2): a lazily populated, copy-on-write cache of
// accounts, code, and storage that falls back to a remote chain for misses, with nested checkpoint/commit/revert and
// a deployed-code survival policy across reverts.
//
// Overlay satisfies go-ethereum's core/vm.StateDB interface directly. core/state.StateDB's remote-overlay extension
// points are internal to a private fork and are not an importable surface here (see DESIGN.md); this is a
// ground-up, in-memory implementation of the same contract.
package overlay

import (
	"context"
	"sync"

	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/crytic/forksim/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// RemoteChainAdapter is the subset of the Remote Chain Adapter's capability Overlay depends on. Declared here
// (accept-interfaces) rather than imported concretely from chain/fork, so Overlay can be exercised against any
// remote data source and chain/fork never needs to import chain/overlay.
type RemoteChainAdapter interface {
	GetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error)
	GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error)
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
	GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
	SupportsProofs() bool
}

// Overlay is the Overlay State Manager. It is not safe for concurrent use: per spec §5, the engine built atop it
// assumes a single logical caller.
type Overlay struct {
	remote          RemoteChainAdapter
	forkBlockNumber uint64
	logger          *logging.Logger

	accounts map[common.Address]*chaintypes.Account
	code     map[common.Hash][]byte
	storage  map[common.Address]map[common.Hash]common.Hash

	// deployedContracts is the deployed-code registry of spec §4.2: populated on every SetCode and replayed after
	// every revert. Reverts never clear it; purgeSelfDestructed removes the entry of an address whose self-destruct
	// has committed.
	deployedContracts map[common.Address][]byte

	journal        journal
	checkpoints    []int // lengths of journal at each open checkpoint, outermost first
	refund         uint64
	transient      map[common.Address]map[common.Hash]common.Hash
	selfDestructed map[common.Address]bool
	accessAddrs    map[common.Address]bool
	accessSlots    map[common.Address]map[common.Hash]bool
	logs           []*types.Log

	fetchLock sync.Mutex // not acquired by any method: cache fills from remote fetches are not serialized

	// ctx is the context live remote fetches should use while this Overlay is being driven as a vm.StateDB (whose
	// interface methods carry no context parameter of their own). SetContext must be called before handing the
	// Overlay to an EVM; it defaults to context.Background().
	ctx context.Context
}

// SetContext installs the context used by StateDB-interface methods for any remote fallback fetch they trigger.
func (o *Overlay) SetContext(ctx context.Context) {
	o.ctx = ctx
}

func (o *Overlay) context() context.Context {
	if o.ctx != nil {
		return o.ctx
	}
	return context.Background()
}

// New constructs an Overlay bound to remote and pinned at forkBlockNumber (spec §4.2, §3 ForkContext).
func New(remote RemoteChainAdapter, forkBlockNumber uint64, logger *logging.Logger) *Overlay {
	return &Overlay{
		remote:            remote,
		forkBlockNumber:   forkBlockNumber,
		logger:            logger,
		accounts:          make(map[common.Address]*chaintypes.Account),
		code:              make(map[common.Hash][]byte),
		storage:           make(map[common.Address]map[common.Hash]common.Hash),
		deployedContracts: make(map[common.Address][]byte),
		transient:         make(map[common.Address]map[common.Hash]common.Hash),
		selfDestructed:    make(map[common.Address]bool),
		accessAddrs:       make(map[common.Address]bool),
		accessSlots:       make(map[common.Address]map[common.Hash]bool),
	}
}

// Checkpoint opens a new nested checkpoint and returns its id, the journal length at the time it was opened. Every
// opened checkpoint must be closed by exactly one matching Commit or Revert (spec §5).
func (o *Overlay) Checkpoint() int {
	id := len(o.journal)
	o.checkpoints = append(o.checkpoints, id)
	return id
}

// Commit closes the most recently opened checkpoint, keeping its mutations. Committing does not discard the journal
// entries themselves (an enclosing checkpoint may still need to revert through them); it only pops the checkpoint
// marker. When the outermost checkpoint commits, every address SelfDestruct marked during it has its code and
// storage purged (spec §4.2/§6: a self-destructed contract's state must stop being observable to later calls).
func (o *Overlay) Commit() {
	if len(o.checkpoints) == 0 {
		return
	}
	o.checkpoints = o.checkpoints[:len(o.checkpoints)-1]
	if len(o.checkpoints) == 0 {
		o.purgeSelfDestructed()
	}
}

// purgeSelfDestructed deletes code and storage for every address marked self-destructed by the transaction/bundle
// that just finally committed, then clears the tracking set. This purge is deliberately not journaled: once a
// checkpoint has committed all the way out, the self-destruct it carried is final.
func (o *Overlay) purgeSelfDestructed() {
	for addr := range o.selfDestructed {
		if account, ok := o.accounts[addr]; ok {
			account.CodeHash = chaintypes.EmptyCodeHash
			account.StorageRoot = chaintypes.EmptyStorageRootHash
		}
		delete(o.storage, addr)
		delete(o.deployedContracts, addr)
	}
	o.selfDestructed = make(map[common.Address]bool)
}

// Revert undoes every mutation recorded since the most recently opened checkpoint, then replays the deployed-code
// registry (spec §4.2's revert policy) so simulated deployments survive the revert of unrelated transaction effects.
func (o *Overlay) Revert() {
	if len(o.checkpoints) == 0 {
		return
	}
	id := o.checkpoints[len(o.checkpoints)-1]
	o.checkpoints = o.checkpoints[:len(o.checkpoints)-1]

	for i := len(o.journal) - 1; i >= id; i-- {
		o.journal[i].revert(o)
	}
	o.journal = o.journal[:id]

	o.replayDeployedContracts()
}

// replayDeployedContracts writes every recorded deployed contract's code back into the overlay, bypassing the
// journal (the replay itself must not be revertible).
func (o *Overlay) replayDeployedContracts() {
	for addr, code := range o.deployedContracts {
		account := o.getOrCreateAccount(addr)
		hash := crypto.Keccak256Hash(code)
		account.CodeHash = hash
		o.code[hash] = code
	}
}
