package fsmpoller

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

// pollerConfig holds mutable state during Poller construction.
type pollerConfig struct {
	name   string
	logger *slog.Logger
}

// Option is a function that configures a [Poller] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New], [NewFromRef] and [NewWithInitial].
// Options return an error if validation fails.
type Option func(*pollerConfig) error

// WithLogger sets the logger used for debug output about detected
// transitions.
//
// By default a poller logs nothing. The logger is only ever called at debug
// level, so passing slog.Default() is cheap unless debug is enabled.
//
// Returns an error if logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithName labels the poller in log output.
//
// Useful when one process drives several pollers, e.g. one per watched
// endpoint. Returns an error if the name is empty or only whitespace.
func WithName(name string) Option {
	return func(cfg *pollerConfig) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("name must not be empty")
		}
		cfg.name = name
		return nil
	}
}

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func applyOptions(opts []Option) (*pollerConfig, error) {
	cfg := &pollerConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	return cfg, nil
}
