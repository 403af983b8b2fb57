package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values in [ApplyEnv].
const (
	EnvLogLevel       = "VOICENAV_LOG_LEVEL"
	EnvListenAddr     = "VOICENAV_LISTEN_ADDR"
	EnvBrowserURL     = "VOICENAV_BROWSER_URL"
	EnvBrowserBackend = "VOICENAV_BROWSER_BACKEND"
	EnvControlURL     = "VOICENAV_CONTROL_URL"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result. An
// empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %q: %w", p, err)
		}
		slog.Debug("config: loaded env file", "path", p)
	}
	return nil
}

// ApplyEnv overrides cfg with the VOICENAV_* variables found through lookup
// (usually [os.LookupEnv]) and re-validates the result.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Server.LogLevel = LogLevel(v)
	}
	if v, ok := lookup(EnvListenAddr); ok {
		cfg.Server.ListenAddr = v
	}
	if v, ok := lookup(EnvBrowserURL); ok {
		cfg.Browser.URL = v
	}
	if v, ok := lookup(EnvBrowserBackend); ok {
		cfg.Browser.Backend = BackendName(v)
	}
	if v, ok := lookup(EnvControlURL); ok {
		cfg.Browser.ControlURL = v
	}
	return Validate(cfg)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Browser
	b := cfg.Browser
	if b.Backend != "" && !b.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("browser.backend %q is invalid; valid values: rod, html", b.Backend))
	}
	if b.Backend == BackendHTML && b.HTMLFile == "" {
		errs = append(errs, errors.New("browser.html_file is required when backend is html"))
	}
	if b.NavigationTimeout < 0 {
		errs = append(errs, fmt.Errorf("browser.navigation_timeout %s must not be negative", b.NavigationTimeout))
	}
	if b.BreakerFailures < 0 {
		errs = append(errs, fmt.Errorf("browser.breaker_failures %d must not be negative", b.BreakerFailures))
	}
	if b.BreakerCooldown < 0 {
		errs = append(errs, fmt.Errorf("browser.breaker_cooldown %s must not be negative", b.BreakerCooldown))
	}
	if (b.Backend == "" || b.Backend == BackendRod) && b.URL == "" {
		slog.Warn("browser.url is empty; the rod backend will open about:blank")
	}
	if b.Backend == BackendHTML && b.URL != "" {
		slog.Warn("browser.url is ignored by the html backend", "url", b.URL)
	}

	// Navigator
	durations := []struct {
		name string
		d    int64
	}{
		{"navigator.error_duration", int64(cfg.Navigator.ErrorDuration)},
		{"navigator.action_duration", int64(cfg.Navigator.ActionDuration)},
		{"navigator.unsupported_duration", int64(cfg.Navigator.UnsupportedDuration)},
		{"navigator.highlight_clear", int64(cfg.Navigator.HighlightClear)},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}

	// Finder
	if t := cfg.Finder.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("finder.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}

	// Telemetry
	if t := cfg.Telemetry.Traces; t != "" && !t.IsValid() {
		errs = append(errs, fmt.Errorf("telemetry.traces %q is invalid; valid values: none, log", t))
	}

	return errors.Join(errs...)
}
