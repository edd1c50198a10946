package chain

import (
	"strings"
	"sync"

	chaintypes "github.com/crytic/forksim/chain/types"
	"github.com/ethereum/go-ethereum/core/types"
)

// indexedTransaction is one entry of the TransactionIndex (spec §3): insertion-only, no eviction, process-lifetime.
type indexedTransaction struct {
	Transaction           *types.Transaction
	Result                *chaintypes.TxResult
	SimulatedBlockNumber  *uint64
}

// transactionIndex maps a lowercase, 0x-prefixed transaction hash string to its indexed record.
type transactionIndex struct {
	mu      sync.Mutex
	entries map[string]*indexedTransaction
}

func newTransactionIndex() *transactionIndex {
	return &transactionIndex{entries: make(map[string]*indexedTransaction)}
}

func normalizeHash(hash string) string {
	return strings.ToLower(hash)
}

func (t *transactionIndex) insert(hash string, tx *types.Transaction, result *chaintypes.TxResult, simulatedBlockNumber *uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[normalizeHash(hash)] = &indexedTransaction{
		Transaction:          tx,
		Result:               result,
		SimulatedBlockNumber: simulatedBlockNumber,
	}
}

// getTransaction returns the typed transaction indexed under hash, or nil on a miss (spec §4.1's getTransaction).
func (t *transactionIndex) getTransaction(hash string) *types.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[normalizeHash(hash)]
	if !ok {
		return nil
	}
	return entry.Transaction
}

// getResult returns the result indexed under hash, or nil on a miss (spec §4.1's getTransactionResult).
func (t *transactionIndex) getResult(hash string) *chaintypes.TxResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[normalizeHash(hash)]
	if !ok {
		return nil
	}
	return entry.Result
}
