package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/fsmpoller/config"
)

// validateCmd validates a config file without probing anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an fsmpoller configuration file without probing anything.

This command parses the YAML, loads env_file, expands environment
variables, and validates every endpoint, extractor and rule.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  fsmpoller validate -c fsmpoller.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:           %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval:  %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Probe interval: %s\n", cfg.ProbeInterval.Duration())
	fmt.Fprintf(out, "  Endpoints:      %d\n", len(cfg.Endpoints))
	fmt.Fprintf(out, "  Rules:          %d\n", len(cfg.Rules))

	return nil
}
