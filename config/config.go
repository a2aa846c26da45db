// Package config provides YAML configuration parsing for the fsmpoller CLI.
//
// The file lists the endpoints to probe and the rules to run when their
// states change. Example:
//
//	port: 8080
//	poll_interval: 1s
//	probe_interval: 10s
//	env_file: .env
//
//	endpoints:
//	  - name: player
//	    url: http://localhost:9000/status
//	    extractor: json:player.state
//	    initial_state: stopped
//
//	rules:
//	  - endpoint: player
//	    on: from_to
//	    from: [playing]
//	    to: [paused]
//	    message: just a small pause
//	  - on: to
//	    to: [down]
//	    level: error
//	    action: exit
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/fsmpoller/internal/probe"
)

const (
	defaultPort           = 8080
	defaultPollInterval   = time.Second
	defaultProbeInterval  = 15 * time.Second
	defaultMaxConcurrency = 10
	defaultHistorySize    = 500

	minPollInterval  = 100 * time.Millisecond
	minProbeInterval = time.Second
	maxProbeInterval = time.Hour
)

// Config is the root configuration structure.
type Config struct {
	// Title labels the instance in logs and API responses.
	Title string `yaml:"title"`

	// Port is the HTTP API port. Defaults to 8080.
	Port int `yaml:"port"`

	// EnvFile is a dotenv file loaded before ${VAR} expansion. Relative
	// paths are resolved against the config file's directory. Variables
	// already set in the environment win.
	EnvFile string `yaml:"env_file"`

	// PollInterval is the cadence of the watch loop. Defaults to 1s.
	PollInterval Duration `yaml:"poll_interval"`

	// ProbeInterval is the default cadence of HTTP probes. Defaults to 15s.
	ProbeInterval Duration `yaml:"probe_interval"`

	// MaxConcurrency bounds concurrent probes. Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	// HistorySize is how many transitions the API keeps. Defaults to 500.
	HistorySize int `yaml:"history_size"`

	Endpoints []EndpointConfig `yaml:"endpoints"`
	Rules     []RuleConfig     `yaml:"rules"`
}

// EndpointConfig defines one probed endpoint.
type EndpointConfig struct {
	Name string `yaml:"name"`

	// URL supports ${VAR} and ${VAR:-default} substitution.
	URL string `yaml:"url"`

	// Method is GET, HEAD or POST. Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the request timeout, at least 1s if set. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers values support environment substitution.
	Headers map[string]string `yaml:"headers"`

	Labels map[string]string `yaml:"labels"`

	// Extractor derives the state from the response.
	Extractor ExtractorConfig `yaml:"extractor"`

	// Interval overrides probe_interval for this endpoint (1s to 1h).
	Interval Duration `yaml:"interval"`

	// InitialState seeds the endpoint's poller so the first probed state
	// is reported as a transition.
	InitialState string `yaml:"initial_state"`
}

// RuleConfig defines one reaction to an endpoint's states.
type RuleConfig struct {
	// Endpoint is an endpoint name, or empty / "*" for all endpoints.
	Endpoint string `yaml:"endpoint"`

	// On is one of: to, from, from_to, any, while.
	On string `yaml:"on"`

	From   []string `yaml:"from"`
	To     []string `yaml:"to"`
	States []string `yaml:"states"`

	// Action is log (default) or exit.
	Action string `yaml:"action"`

	// Level is debug, info (default), warn or error.
	Level string `yaml:"level"`

	Message string `yaml:"message"`
}

// ExtractorConfig specifies how a state is derived from a response.
//
// It accepts the shorthand string form:
//
//	extractor: json:player.state
//
// or the structured form:
//
//	extractor:
//	  type: regex
//	  pattern: 'state=(\w+)'
type ExtractorConfig struct {
	// Type is http, json, contains or regex. Empty means http.
	Type string

	// Arg is the JSON path, substring or pattern for the given type.
	Arg string
}

// Shorthand returns the spelling understood by probe.ParseExtractor.
func (e ExtractorConfig) Shorthand() string {
	if e.Arg == "" {
		return e.Type
	}
	return e.Type + ":" + e.Arg
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
		e.Type, e.Arg = kind, arg
		return nil

	case yaml.MappingNode:
		var raw struct {
			Type    string `yaml:"type"`
			Path    string `yaml:"path"`
			Text    string `yaml:"text"`
			Pattern string `yaml:"pattern"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		switch {
		case raw.Path != "":
			e.Arg = raw.Path
		case raw.Text != "":
			e.Arg = raw.Text
		default:
			e.Arg = raw.Pattern
		}
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	out := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		m := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := m[1], m[2] != "", m[3]

		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

// Parse parses YAML configuration data. A relative env_file is resolved
// against the working directory.
func Parse(data []byte) (*Config, error) {
	return parse(data, "")
}

func parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.EnvFile != "" {
		path := cfg.EnvFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env_file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = Duration(defaultProbeInterval)
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.HistorySize == 0 {
		c.HistorySize = defaultHistorySize
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.ProbeInterval.Duration() < minProbeInterval {
		return fmt.Errorf("probe_interval must be at least %s, got %s", minProbeInterval, c.ProbeInterval.Duration())
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}

	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint must be defined")
	}

	names := make(map[string]bool, len(c.Endpoints))
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if err := ep.expandAndValidate(); err != nil {
			if ep.Name == "" {
				return fmt.Errorf("endpoints[%d]: %w", i, err)
			}
			return fmt.Errorf("endpoints[%d] (%s): %w", i, ep.Name, err)
		}
		if names[ep.Name] {
			return fmt.Errorf("endpoints[%d]: duplicate endpoint name %q", i, ep.Name)
		}
		names[ep.Name] = true
	}

	for i, r := range c.Rules {
		if r.Endpoint != "" && r.Endpoint != "*" && !names[r.Endpoint] {
			return fmt.Errorf("rules[%d]: unknown endpoint %q", i, r.Endpoint)
		}
		if _, err := buildRule(r); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}

	return nil
}

func (ep *EndpointConfig) expandAndValidate() error {
	if ep.Name == "" {
		return errors.New("name is required")
	}
	if ep.URL == "" {
		return errors.New("url is required")
	}

	expanded, err := expandEnvVars(ep.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	ep.URL = expanded

	u, err := url.Parse(ep.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	for k, v := range ep.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		ep.Headers[k] = expanded
	}

	switch ep.Method {
	case "", "GET", "HEAD", "POST":
	default:
		return errors.New("method must be GET, HEAD, or POST")
	}

	if ep.Timeout != 0 && ep.Timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s if specified, got %s", ep.Timeout.Duration())
	}

	if ep.Interval != 0 {
		if d := ep.Interval.Duration(); d < minProbeInterval || d > maxProbeInterval {
			return fmt.Errorf("interval must be between %s and %s, got %s", minProbeInterval, maxProbeInterval, d)
		}
	}

	if _, err := probe.ParseExtractor(ep.Extractor.Shorthand()); err != nil {
		return fmt.Errorf("extractor: %w", err)
	}

	return nil
}
