package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/fsmpoller/config"
	"github.com/jpalmerr/fsmpoller/internal/probe"
	"github.com/jpalmerr/fsmpoller/internal/server"
	"github.com/jpalmerr/fsmpoller/internal/store"
	"github.com/jpalmerr/fsmpoller/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Probe endpoints and run rules on state changes",
	Long: `Probe the configured endpoints and run rules as their states change.

watch will:
  - Load configuration from the specified YAML file
  - Probe every endpoint at its interval
  - Poll the latest probed states every poll_interval and run rules
  - Serve the states and transition history on the configured port

watch runs until interrupted (Ctrl+C), SIGTERM, or an exit rule fires.

Example:
  fsmpoller watch -c fsmpoller.yaml
  fsmpoller watch -c fsmpoller.yaml --env-file secrets.env`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().String("env-file", "", "dotenv file loaded before the config")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := s.newLogger(os.Stderr)
	if err != nil {
		return err
	}

	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	targets, err := config.BuildTargets(cfg)
	if err != nil {
		return fmt.Errorf("failed to build targets: %w", err)
	}
	rules, err := config.BuildRules(cfg)
	if err != nil {
		return fmt.Errorf("failed to build rules: %w", err)
	}

	logger.Info("config loaded",
		"endpoints", len(cfg.Endpoints),
		"rules", len(rules),
		"poll_interval", cfg.PollInterval.Duration().String(),
		"probe_interval", cfg.ProbeInterval.Duration().String(),
	)

	st := store.NewMemoryStore(cfg.HistorySize)
	cache := watch.NewCache()

	engine, err := watch.NewEngine(config.BuildEndpoints(cfg), rules, cache, st, cfg.PollInterval.Duration(), logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// an exit rule ends Run without cancelling ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := server.NewServer(st, cfg.Port, cfg.Title, logger).Start(ctx); err != nil {
		return err
	}

	scheduler := probe.NewScheduler(targets, cfg.ProbeInterval.Duration(), cfg.MaxConcurrency, logger)
	scheduler.Start(ctx)

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		cache.Consume(scheduler.Results())
	}()

	err = engine.Run(ctx)

	cancel()
	scheduler.Stop()
	<-consumed

	if err != nil {
		return fmt.Errorf("watch loop: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
