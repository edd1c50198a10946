package types

// CallResult is returned by Engine.Call: a static, read-only invocation that never mutates the overlay (spec §4.1).
type CallResult struct {
	ReturnData []byte
	GasUsed    uint64
	Failed     bool
	Error      string
}

// TxResult is returned by Engine.Execute/ExecuteBundle: the prepared transaction's hash alongside its receipt, and —
// when the transaction ran inside a synthesized block (the fully-signed path) — the simulated block number it ran
// in.
type TxResult struct {
	Hash              string
	Receipt           *Receipt
	SimulatedBlockNumber *uint64
}
