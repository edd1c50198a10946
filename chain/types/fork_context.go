package types

import "github.com/ethereum/go-ethereum/params"

// ForkContext is immutable for the lifetime of a Simulation Engine, per spec §3: the remote chain URL and block
// height pinned at construction, plus the rule set the EVM executes under.
type ForkContext struct {
	ChainURL        string
	ForkBlockNumber uint64
	ChainID         uint64
	Common          *params.ChainConfig
}
