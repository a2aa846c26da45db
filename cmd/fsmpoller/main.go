// Package main is the entry point for the fsmpoller CLI.
//
// fsmpoller probes HTTP endpoints, derives a state for each, and runs
// configured rules whenever a state changes or persists.
//
// Usage:
//
//	fsmpoller watch -c config.yaml    # Probe endpoints and run rules
//	fsmpoller validate -c config.yaml # Validate configuration
//	fsmpoller demo                    # Run the media player demo
//	fsmpoller version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags, e.g. -X main.version=1.0.0.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only shows help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "fsmpoller",
	Short: "Turn polled values into state transitions",
	Long: `fsmpoller polls values and reacts when they change.

The watch command probes HTTP endpoints, derives a state from each
response (status code, JSON field, substring or regex), and runs rules
on transitions into, out of or between states, or on every poll while
an endpoint stays in a state.

Quick start:
  1. Create a config file (fsmpoller.yaml)
  2. Run: fsmpoller watch -c fsmpoller.yaml
  3. Inspect http://localhost:8080/api/states

Example config:
  poll_interval: 1s
  endpoints:
    - name: player
      url: http://localhost:9000/status
      extractor: json:state
  rules:
    - on: from_to
      from: [playing]
      to: [paused]
      message: just a small pause

Environment:
  FSMPOLLER_LOG_LEVEL   debug, info, warn or error (default info)
  FSMPOLLER_LOG_FORMAT  json or text (default json)`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this fsmpoller binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fsmpoller %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
