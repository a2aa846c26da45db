package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/fsmpoller/internal/mediaplayer"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the media player demo",
	Long: `Run a scripted media player while a poller watches its state.

The player plays, pauses briefly, plays again and stops. The poller
prints a line on every poll while playing, one when playing turns into
paused, and stops polling once the player has stopped.

Example:
  fsmpoller demo
  fsmpoller demo --step 200ms --poll-interval 100ms`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Duration("poll-interval", 0, "pause between polls (default 500ms)")
	demoCmd.Flags().Duration("step", 0, "duration of one script step (default 1s)")
}

func runDemo(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := s.newLogger(os.Stderr)
	if err != nil {
		return err
	}

	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	step, _ := cmd.Flags().GetDuration("step")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mediaplayer.RunDemo(ctx, mediaplayer.DemoConfig{
		PollInterval: pollInterval,
		Step:         step,
		Out:          cmd.OutOrStdout(),
		Logger:       logger,
	})
}
