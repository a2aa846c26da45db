package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jpalmerr/fsmpoller"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultStep         = time.Second
)

// DemoConfig controls the pace and output of [RunDemo].
type DemoConfig struct {
	// PollInterval is the pause between two polls. Defaults to 500ms.
	PollInterval time.Duration

	// Step is the unit of the script: the player plays for 5 steps, pauses
	// for 1, plays for 5 more and then lingers 3 steps after stopping.
	// Defaults to 1s.
	Step time.Duration

	// Out receives the messages printed by the poller callbacks.
	Out io.Writer

	// Logger receives script progress. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c DemoConfig) withDefaults() DemoConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Step <= 0 {
		c.Step = defaultStep
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// RunDemo plays the demonstration script against a fresh [Player] while a
// background goroutine polls it.
//
// The polling goroutine prints "The music is playing" on every poll while
// playing, "Just a small pause" when playing turns into paused, and "The
// music has stopped" when the player stops, which also ends the poll loop.
//
// RunDemo blocks until both the script and the poll loop are finished.
// It returns ctx.Err() if the context is cancelled first. A poll error ends
// the script at once and is returned.
func RunDemo(ctx context.Context, cfg DemoConfig) error {
	cfg = cfg.withDefaults()
	player := New()

	poller, err := fsmpoller.New(player.State,
		fsmpoller.WithName("mediaplayer"),
		fsmpoller.WithLogger(cfg.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	registerDemoCallbacks(poller, cfg.Out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pollDone := make(chan error, 1)
	go func() {
		pollDone <- pollUntilStopped(ctx, poller, cfg.PollInterval)
	}()

	script := []struct {
		action string
		do     func()
		steps  int
	}{
		{"play", player.Play, 5},
		{"pause", player.Pause, 1},
		{"play", player.Play, 5},
		{"stop", player.Stop, 3},
	}

	// done is nilled once the poll loop has reported, so it is read only once
	done := pollDone
	polled := false

script:
	for _, s := range script {
		cfg.Logger.Info("demo step", "action", s.action, "steps", s.steps)
		s.do()

		timer := time.NewTimer(time.Duration(s.steps) * cfg.Step)
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				break script
			case err := <-done:
				polled, done = true, nil
				if err != nil {
					timer.Stop()
					return err
				}
			case <-timer.C:
				break wait
			}
		}
	}

	if polled {
		return nil
	}
	return <-pollDone
}

// registerDemoCallbacks installs the three demonstration callbacks.
func registerDemoCallbacks(p *fsmpoller.Poller[State], out io.Writer) {
	p.To(Stopped, func(fsmpoller.TransitionEvent[State]) error {
		_, err := fmt.Fprintln(out, "The music has stopped")
		if err != nil {
			return err
		}
		return errStopped
	})

	p.FromTo(Playing, Paused, func(fsmpoller.TransitionEvent[State]) error {
		_, err := fmt.Fprintln(out, "Just a small pause")
		return err
	})

	p.ExecuteWhileInState(Playing, func(State) error {
		_, err := fmt.Fprintln(out, "The music is playing")
		return err
	})
}

// errStopped ends the poll loop once the player has stopped.
var errStopped = errors.New("player stopped")

func pollUntilStopped(ctx context.Context, p *fsmpoller.Poller[State], interval time.Duration) error {
	for {
		if err := p.Update(); err != nil {
			if errors.Is(err, errStopped) {
				return nil
			}
			return err
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
