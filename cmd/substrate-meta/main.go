// =============================================================================
// FILE: cmd/substrate-meta/main.go
// ROLE: CLI entry point, one-shot metadata download
// =============================================================================
//
// EXECUTION FLOW
// ==============
//
//   1. main()
//      │
//      ├─ env.Load()              ← Load .env so ${VAR} in the config resolves
//      └─ rootCmd().Execute()     ← Dispatch to fetch, inspect or version
//           │
//           └─ fetch
//               ├─ loadConfig()          ← config/node.yaml or defaults
//               ├─ applyFetchFlags()     ← Flags override the file
//               └─ fetch.Fetcher.Run()   ← connect → request → render → write
//
// EXIT STATUS
// ===========
// The failed step picks the status (see fetch.ExitCode), so scripts can tell
// an unreachable node (2) from a bad response (3), an unrenderable document
// (4) and a write failure (5). Anything else, such as a bad flag, exits 1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/env"
	"github.com/dmagro/substrate-meta/internal/fetch"
)

var version = "dev"

func main() {
	if err := env.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(fetch.ExitCode(err))
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "substrate-meta",
		Short: "Download and render Substrate runtime metadata",
		Long: `Connect to a Substrate node over websocket, request its runtime metadata
and write it to a file as a human-readable JSON document.

Example:
  substrate-meta fetch --endpoint ws://127.0.0.1:9944 --output meta.json
  substrate-meta inspect meta.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", config.DefaultPath, "Path to config file")
	root.PersistentFlags().String("log-level", "", "Log level: trace|debug|info|warn|error")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(fetchCmd(), inspectCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "substrate-meta version %s\n", version)
		},
	}
}
