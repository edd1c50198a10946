package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
)

// Log is the triple form spec §4.1 step 5 requires every receipt log be rendered into: address, topics, and data,
// all hex.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// logsFromGeth converts go-ethereum logs (as produced by executing a message against the overlay) into the triple
// form this package's Receipt carries.
func logsFromGeth(logs []*gethTypes.Log) []Log {
	out := make([]Log, 0, len(logs))
	for _, l := range logs {
		out = append(out, Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	return out
}

// Receipt is the result of executing one transaction, per spec §3.
type Receipt struct {
	// Status is true for a successful execution, false for a reverted one.
	Status bool

	CumulativeGasUsed uint64
	GasUsed           uint64

	Logs []Log

	// CreatedAddress is set for a successful contract-creation transaction.
	CreatedAddress *common.Address

	// StateRoot and Bloom are optional per spec §3; the overlay does not maintain a Merkle trie, so StateRoot is
	// always nil here. Bloom is go-ethereum's own filter over Logs, carried through from the types.Receipt
	// chain/vendored.EVMApplyTransaction already computed it on — never recomputed here.
	StateRoot *common.Hash
	Bloom     gethTypes.Bloom

	// RevertData is the raw return data of a failed execution.
	RevertData []byte

	// Error is set when execution failed; it carries the decoded revert reason (spec §4.5). Per spec §7, an
	// EvmException never escapes execute*/executeBundle as a Go error — it is only ever surfaced here.
	Error string
}

// NewReceiptFromExecutionResult builds a Receipt from the outcome of running one message against the overlay. bloom
// is the filter go-ethereum already computed over logs while synthesizing the underlying types.Receipt.
func NewReceiptFromExecutionResult(cumulativeGasUsed, gasUsed uint64, logs []*gethTypes.Log, createdAddress *common.Address, failed bool, returnValue []byte, bloom gethTypes.Bloom) *Receipt {
	r := &Receipt{
		Status:            !failed,
		CumulativeGasUsed: cumulativeGasUsed,
		GasUsed:           gasUsed,
		Logs:              logsFromGeth(logs),
		CreatedAddress:    createdAddress,
		Bloom:             bloom,
	}
	if failed {
		r.RevertData = returnValue
		r.Error = DecodeRevertReason(returnValue)
	}
	return r
}
