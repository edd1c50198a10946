package chain

import "github.com/ethereum/go-ethereum/common"

// BlockMinedEvent is published after a fully-signed bundle commits and a new simulated block is synthesized
// (SPEC_FULL.md's supplemented event-notification feature). BundleID correlates it back to the executeBundle call
// that produced it, for a caller subscribed across many concurrent-looking bundles.
type BlockMinedEvent struct {
	BundleID    string
	BlockNumber uint64
	TxHashes    []common.Hash
}

// BundleRevertedEvent is published whenever executeBundle reverts its checkpoint because one of its transactions
// carried an error (spec §4.1 step 6).
type BundleRevertedEvent struct {
	BundleID string
	Reason   string
}
