package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jpalmerr/fsmpoller/internal/probe"
	"github.com/jpalmerr/fsmpoller/internal/watch"
)

// BuildTargets converts the configured endpoints into probe targets.
func BuildTargets(cfg *Config) ([]probe.Target, error) {
	targets := make([]probe.Target, 0, len(cfg.Endpoints))

	for _, ec := range cfg.Endpoints {
		extractor, err := probe.ParseExtractor(ec.Extractor.Shorthand())
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", ec.Name, err)
		}

		targets = append(targets, probe.Target{
			Name: ec.Name,
			Request: probe.Request{
				Method:  ec.Method,
				URL:     ec.URL,
				Headers: copyMap(ec.Headers),
				Timeout: ec.Timeout.Duration(),
			},
			Interval:  ec.Interval.Duration(),
			Extractor: extractor,
		})
	}

	return targets, nil
}

// BuildEndpoints converts the configured endpoints into watched endpoints.
func BuildEndpoints(cfg *Config) []watch.Endpoint {
	endpoints := make([]watch.Endpoint, 0, len(cfg.Endpoints))
	for _, ec := range cfg.Endpoints {
		endpoints = append(endpoints, watch.Endpoint{
			Name:         ec.Name,
			URL:          ec.URL,
			Labels:       copyMap(ec.Labels),
			InitialState: ec.InitialState,
		})
	}
	return endpoints
}

// BuildRules converts the configured rules, preserving their order.
func BuildRules(cfg *Config) ([]watch.Rule, error) {
	rules := make([]watch.Rule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		r, err := buildRule(rc)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func buildRule(rc RuleConfig) (watch.Rule, error) {
	level, err := parseLevel(rc.Level)
	if err != nil {
		return watch.Rule{}, err
	}

	action := watch.Action(strings.ToLower(rc.Action))
	if action == "" {
		action = watch.ActionLog
	}

	r := watch.Rule{
		Endpoint: rc.Endpoint,
		Kind:     watch.RuleKind(strings.ToLower(rc.On)),
		From:     rc.From,
		To:       rc.To,
		States:   rc.States,
		Action:   action,
		Level:    level,
		Message:  rc.Message,
	}
	if err := r.Validate(); err != nil {
		return watch.Rule{}, err
	}
	return r, nil
}

// parseLevel maps a level name to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	return level, nil
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
