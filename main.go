package main

import (
	"fmt"
	"os"

	"github.com/crytic/forksim/cmd"
	"github.com/crytic/forksim/cmd/exitcodes"
)

func main() {
	// Run our root CLI command, which contains all underlying command logic and will handle parsing/invocation.
	err := cmd.Execute()

	// Unwrap to the inner error and the exit code it carries, then exit with that code.
	innerErr, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	if innerErr != nil {
		fmt.Fprintln(os.Stderr, innerErr.Error())
	}
	os.Exit(exitCode)
}
