// Command wcupdate drives the working-copy update editor (internal/wcedit)
// from the command line: apply a delta script, inspect resumability state,
// or replay any journal left behind by an interrupted run.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wcupdate:", err)
		os.Exit(1)
	}
}
