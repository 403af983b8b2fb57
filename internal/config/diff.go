package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked individually;
// anything else is summarised by RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	FuzzyThresholdChanged bool
	NewFuzzyThreshold     float64

	// TimingChanged is true when any navigator duration changed. Status
	// durations apply immediately; highlight_clear only at startup.
	TimingChanged bool

	// RestartRequired is true when the server, browser, console or
	// telemetry section changed. Those settings are only read at startup.
	RestartRequired bool
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.FuzzyThresholdChanged || d.TimingChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Finder.FuzzyThreshold != new.Finder.FuzzyThreshold {
		d.FuzzyThresholdChanged = true
		d.NewFuzzyThreshold = new.Finder.FuzzyThreshold
	}

	d.TimingChanged = old.Navigator != new.Navigator

	d.RestartRequired = old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Browser != new.Browser ||
		old.Console != new.Console ||
		old.Telemetry != new.Telemetry

	return d
}
