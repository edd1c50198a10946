// Package config carries the Simulation Engine's construction-time configuration: which remote chain to fork from,
// at which block, and which EVM rule set to execute under.
package config

// EngineConfig configures a Simulation Engine at construction (spec §4.1's create operation).
type EngineConfig struct {
	// Fork describes the remote chain to fork from and the block height to pin reads at.
	Fork ForkConfig `json:"forkConfig"`

	// Hardfork selects the named hardfork rule set the EVM executes under. Defaults to "shanghai" per spec §4.1.
	Hardfork string `json:"hardfork,omitempty"`
}

// ForkConfig describes the remote chain a Simulation Engine forks from.
type ForkConfig struct {
	// RpcUrl is the JSON-RPC endpoint the Remote Chain Adapter dials.
	RpcUrl string `json:"rpcUrl"`

	// RpcBlock is the block height reads are pinned to. Zero means "resolve to the remote head at construction
	// time" (spec §4.1).
	RpcBlock uint64 `json:"rpcBlock,omitempty"`

	// PoolSize is the number of concurrent JSON-RPC connections the Remote Chain Adapter maintains.
	PoolSize uint `json:"poolSize,omitempty"`
}

// DefaultEngineConfig returns an EngineConfig with every field at its zero-ish default: RpcBlock 0 (resolve to
// head), PoolSize 4, Hardfork "shanghai".
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Fork: ForkConfig{
			PoolSize: 4,
		},
		Hardfork: "shanghai",
	}
}
