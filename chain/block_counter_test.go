package chain

import "testing"

import "github.com/stretchr/testify/assert"

// TestBlockCounterAdvance verifies advance increments both the block index and timestamp by one, starting from the
// construction timestamp.
func TestBlockCounterAdvance(t *testing.T) {
	c := newBlockCounter(1_700_000_000)

	blockIndex, timestamp := c.advance()
	assert.Equal(t, uint64(1), blockIndex)
	assert.Equal(t, uint64(1_700_000_001), timestamp)

	blockIndex, timestamp = c.advance()
	assert.Equal(t, uint64(2), blockIndex)
	assert.Equal(t, uint64(1_700_000_002), timestamp)
}

// TestResolveAndReverseAreInverses verifies resolve and reverse invert one another across the fork boundary.
func TestResolveAndReverseAreInverses(t *testing.T) {
	forkBlock := uint64(18_000_000)

	external := resolve(forkBlock, 5)
	assert.Equal(t, uint64(18_000_005), external)
	assert.Equal(t, uint64(5), reverse(forkBlock, external))
}

// TestIsSimulated verifies a block number is reported simulated only strictly after the fork point.
func TestIsSimulated(t *testing.T) {
	forkBlock := uint64(18_000_000)

	assert.False(t, isSimulated(forkBlock, forkBlock))
	assert.False(t, isSimulated(forkBlock, forkBlock-1))
	assert.True(t, isSimulated(forkBlock, forkBlock+1))
}
