package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

// newBlockContext builds a vm.BlockContext for header, hooking GetHash to the engine's own block-numbering scheme
// (spec §4.1) rather than a core.BlockChain, since this engine never maintains one.
func newBlockContext(e *Engine, header *types.Header) vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     e.blockHash,
		Coinbase:    header.Coinbase,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        header.Time,
		Difficulty:  new(big.Int).Set(header.Difficulty),
		BaseFee:     blockBaseFee(header),
		GasLimit:    header.GasLimit,
		Random:      &header.MixDigest,
	}
}

func blockBaseFee(header *types.Header) *big.Int {
	if header.BaseFee == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(header.BaseFee)
}

// blockHash implements the BLOCKHASH opcode's hook. It resolves n through the engine's fork/simulated numbering
// (spec §4.1): a historical block number maps onto the remote chain's real hash by re-deriving it from a header
// fetch; a simulated block number maps onto the synthetic chain's own recorded hash. Numbers past the current
// head, or more than 256 blocks behind the block after it, return a zero hash per the BLOCKHASH opcode's own rules;
// the current head itself resolves to its hash.
func (e *Engine) blockHash(n uint64) common.Hash {
	current := e.forkContext.ForkBlockNumber + e.blockCounter.current
	if n >= current+1 {
		return common.Hash{}
	}
	if current+1-n > 256 {
		return common.Hash{}
	}

	if n > e.forkContext.ForkBlockNumber {
		if hash, ok := e.simulatedBlockHashes[n]; ok {
			return hash
		}
		return common.Hash{}
	}

	header, err := e.remote.HeaderByNumber(e.context(), n)
	if err != nil {
		return common.Hash{}
	}
	return header.Hash()
}
