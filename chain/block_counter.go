package chain

// blockCounter tracks the Simulation Engine's synthetic block numbering (spec §3's SimulatedBlockCounter): current
// starts at 0 and is incremented once per block-bound execution; lastTimestamp is initialized at construction and
// incremented by one second alongside it.
type blockCounter struct {
	current       uint64
	lastTimestamp uint64
}

func newBlockCounter(constructionTimestamp uint64) blockCounter {
	return blockCounter{current: 0, lastTimestamp: constructionTimestamp}
}

// advance increments the counter by one block and one second, returning the new (blockIndex, timestamp) pair.
func (c *blockCounter) advance() (uint64, uint64) {
	c.current++
	c.lastTimestamp++
	return c.current, c.lastTimestamp
}

// resolve translates an internal block index into the engine's external, fork-relative block number. resolve and
// reverse (below) must be inverses, per spec §4.1.
func resolve(forkBlockNumber, internalCounter uint64) uint64 {
	return forkBlockNumber + internalCounter
}

// reverse translates an external, fork-relative block number back into an internal block index.
func reverse(forkBlockNumber, externalNumber uint64) uint64 {
	return externalNumber - forkBlockNumber
}

// isSimulated reports whether externalNumber falls strictly after the fork point and therefore addresses a
// synthesized block rather than remote chain history (spec §4.1).
func isSimulated(forkBlockNumber, externalNumber uint64) bool {
	return externalNumber > forkBlockNumber
}
