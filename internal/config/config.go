// Package config provides the configuration schema, loader, hot-reload watcher
// and page backend registry for voicenav.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the voicenav server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// BackendName selects the page backend implementation.
type BackendName string

const (
	// BackendRod drives a live Chromium tab.
	BackendRod BackendName = "rod"

	// BackendHTML serves a static HTML file parsed offline.
	BackendHTML BackendName = "html"
)

// IsValid reports whether b is a recognised backend.
func (b BackendName) IsValid() bool {
	return b == BackendRod || b == BackendHTML
}

// TraceExporter selects where finished spans go.
type TraceExporter string

const (
	// TracesNone records spans without exporting them.
	TracesNone TraceExporter = "none"

	// TracesLog writes every finished span to the structured log.
	TracesLog TraceExporter = "log"
)

// IsValid reports whether e is a recognised trace exporter.
func (e TraceExporter) IsValid() bool {
	return e == TracesNone || e == TracesLog
}

// Config is the root configuration structure for voicenav.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Navigator NavigatorConfig `yaml:"navigator"`
	Finder    FinderConfig    `yaml:"finder"`
	Console   ConsoleConfig   `yaml:"console"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the HTTP server (websocket gateway,
	// health, metrics). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// BrowserConfig selects and configures the page backend.
type BrowserConfig struct {
	// Backend is the registered backend name. Defaults to "rod".
	Backend BackendName `yaml:"backend"`

	// URL is the page opened by the rod backend.
	URL string `yaml:"url"`

	// ControlURL is the DevTools websocket of a running browser. When empty
	// the rod backend launches one.
	ControlURL string `yaml:"control_url"`

	// Bin is the browser binary used when launching.
	Bin string `yaml:"bin"`

	// Headless launches the browser without a window.
	Headless bool `yaml:"headless"`

	// HTMLFile is the document served by the html backend.
	HTMLFile string `yaml:"html_file"`

	// NavigationTimeout bounds the initial page load of the rod backend.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	// BreakerFailures is the number of consecutive page failures after which
	// page calls fail fast (default 5).
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerCooldown is how long page calls fail fast before a probe call is
	// let through (default 30s).
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// NavigatorConfig tunes status and highlight timing. Zero values use the
// built-in defaults.
type NavigatorConfig struct {
	// ErrorDuration is how long error statuses stay visible (default 3s).
	ErrorDuration time.Duration `yaml:"error_duration"`

	// ActionDuration is how long the "Executando" status stays (default 2s).
	ActionDuration time.Duration `yaml:"action_duration"`

	// UnsupportedDuration is how long the unsupported-API status stays
	// (default 5s).
	UnsupportedDuration time.Duration `yaml:"unsupported_duration"`

	// HighlightClear is the delay before highlights are removed after a
	// non-scroll action (default 1s).
	HighlightClear time.Duration `yaml:"highlight_clear"`
}

// FinderConfig tunes element matching.
type FinderConfig struct {
	// FuzzyThreshold enables the Jaro-Winkler fallback when > 0. Must be in
	// [0, 1].
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// ConsoleConfig controls the stdin recognizer.
type ConsoleConfig struct {
	// Enabled reads utterances from stdin, one per line.
	Enabled bool `yaml:"enabled"`
}

// TelemetryConfig describes how this process reports itself to OpenTelemetry.
type TelemetryConfig struct {
	// ServiceName is the service.name resource attribute. Default: "voicenav".
	ServiceName string `yaml:"service_name"`

	// Traces selects the span exporter. Default: none.
	Traces TraceExporter `yaml:"traces"`
}
