package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// settings are process-level options read from the environment.
type settings struct {
	LogLevel  string `env:"FSMPOLLER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"FSMPOLLER_LOG_FORMAT" envDefault:"json"`
}

func loadSettings() (settings, error) {
	s, err := env.ParseAs[settings]()
	if err != nil {
		return settings{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return s, nil
}

// newLogger builds the CLI logger writing to w.
func (s settings) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid FSMPOLLER_LOG_LEVEL %q", s.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(s.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid FSMPOLLER_LOG_FORMAT %q (expected json or text)", s.LogFormat)
	}
}
