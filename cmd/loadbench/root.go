// cmd/loadbench/root.go
package loadbench

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base Cobra command for the loadbench application.
// All subcommands are attached to this root to form the complete CLI.
var rootCmd = &cobra.Command{
	Use:   "loadbench",
	Short: "Load-time benchmark harness for the WASM game client",
	Long: `loadbench builds the WASM client, serves it locally, loads it repeatedly in a
headless browser and reports load-time metrics as JSON and Markdown. Use
--mock to produce deterministic synthetic metrics without a browser.`,
	SilenceUsage: true,
}

// Execute runs the root Cobra command and all registered subcommands.
// It prints any returned error and exits the process with a non-zero
// status code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
