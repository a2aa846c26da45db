// Standalone media player for trying the watch command.
//
// Usage:
//
//	go run ./example/cmd/playerserver
//
// Then in another terminal:
//
//	go run ./cmd/fsmpoller watch -c example/fsmpoller.yaml
//
// The player loops through the demo script (play, short pause, play,
// stop) every 30 seconds. It can also be driven by hand:
//
//	curl -X POST localhost:9000/pause
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/fsmpoller/internal/mediaplayer"
)

const (
	addr = ":9000"
	step = 2 * time.Second
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Println("Media player listening on", addr)
	fmt.Println("Cycles through: playing → paused → playing → stopped")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	player := mediaplayer.New()
	go loop(ctx, player, logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mediaplayer.Handler(player),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loop(ctx context.Context, p *mediaplayer.Player, logger *slog.Logger) {
	script := []struct {
		do    func()
		steps int
	}{
		{p.Play, 5},
		{p.Pause, 1},
		{p.Play, 5},
		{p.Stop, 4},
	}

	for {
		for _, s := range script {
			s.do()
			logger.Info("player state", "state", p.State().String())

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(s.steps) * step):
			}
		}
	}
}
