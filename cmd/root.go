package cmd

import (
	"context"
	"io"

	"github.com/crytic/forksim/chain"
	"github.com/crytic/forksim/chain/config"
	"github.com/crytic/forksim/chain/simerrors"
	"github.com/crytic/forksim/cmd/exitcodes"
	"github.com/crytic/forksim/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.1"

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:     "simctl",
	Version: version,
	Short:   "A forked-chain EVM execution simulator",
	Long:    "simctl forks a live chain at a block height and lets you execute or call transactions against a mutable in-memory overlay",
}

// Persistent flags every engine-backed subcommand shares (--rpc-url, --block, --hardfork, --pool-size).
var (
	flagRpcUrl   string
	flagBlock    uint64
	flagHardfork string
	flagPoolSize uint
)

// cmdLogger is the logger that will be used for the cmd package.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true, make([]io.Writer, 0)...)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRpcUrl, "rpc-url", "", "JSON-RPC endpoint of the chain to fork from")
	rootCmd.PersistentFlags().Uint64Var(&flagBlock, "block", 0, "block height to fork at (0 resolves to the remote head)")
	rootCmd.PersistentFlags().StringVar(&flagHardfork, "hardfork", "shanghai", "hardfork rule set the EVM executes under")
	rootCmd.PersistentFlags().UintVar(&flagPoolSize, "pool-size", 4, "number of concurrent JSON-RPC connections to the remote chain")
}

// newEngineFromFlags constructs a Simulation Engine from the shared persistent flags. Every subcommand that talks to
// a forked chain goes through this one constructor so --rpc-url/--block/--hardfork/--pool-size behave identically
// everywhere.
func newEngineFromFlags(ctx context.Context) (*chain.Engine, error) {
	cfg := config.DefaultEngineConfig()
	cfg.Fork.RpcUrl = flagRpcUrl
	cfg.Fork.RpcBlock = flagBlock
	cfg.Fork.PoolSize = flagPoolSize
	cfg.Hardfork = flagHardfork

	return chain.New(ctx, cfg, cmdLogger.NewSubLogger("unit", "cmd"))
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered, wrapped in an
// exitcodes.ErrorWithExitCode when the failure came from the Simulation Engine so main can exit with a code that
// distinguishes a rejected request from an upstream or internal failure.
func Execute() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	if simErr, ok := err.(*simerrors.SimError); ok {
		return exitcodes.NewErrorWithExitCode(simErr, exitCodeForKind(simErr.Kind()))
	}
	return err
}

// exitCodeForKind maps a simerrors.Kind to the process exit code that reports it.
func exitCodeForKind(kind simerrors.Kind) int {
	switch kind {
	case simerrors.InvalidArgument:
		return exitcodes.ExitCodeInvalidArgument
	case simerrors.Precondition:
		return exitcodes.ExitCodePrecondition
	case simerrors.Upstream:
		return exitcodes.ExitCodeUpstream
	case simerrors.Internal:
		return exitcodes.ExitCodeInternal
	default:
		return exitcodes.ExitCodeGeneralError
	}
}
