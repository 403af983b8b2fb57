package config_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/voicenav/internal/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		return &config.Config{
			Server:    config.ServerConfig{ListenAddr: ":8090", LogLevel: config.LogInfo},
			Browser:   config.BrowserConfig{Backend: config.BackendRod, URL: "https://example.org"},
			Navigator: config.NavigatorConfig{ErrorDuration: 3 * time.Second},
			Finder:    config.FinderConfig{FuzzyThreshold: 0},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   config.ConfigDiff
	}{
		{
			name:   "no change",
			mutate: func(*config.Config) {},
			want:   config.ConfigDiff{},
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			want:   config.ConfigDiff{LogLevelChanged: true, NewLogLevel: config.LogDebug},
		},
		{
			name:   "fuzzy threshold",
			mutate: func(c *config.Config) { c.Finder.FuzzyThreshold = 0.85 },
			want:   config.ConfigDiff{FuzzyThresholdChanged: true, NewFuzzyThreshold: 0.85},
		},
		{
			name:   "timing",
			mutate: func(c *config.Config) { c.Navigator.HighlightClear = 2 * time.Second },
			want:   config.ConfigDiff{TimingChanged: true},
		},
		{
			name:   "browser url needs restart",
			mutate: func(c *config.Config) { c.Browser.URL = "https://other.example" },
			want:   config.ConfigDiff{RestartRequired: true},
		},
		{
			name:   "listen addr needs restart",
			mutate: func(c *config.Config) { c.Server.ListenAddr = ":9000" },
			want:   config.ConfigDiff{RestartRequired: true},
		},
		{
			name:   "console needs restart",
			mutate: func(c *config.Config) { c.Console.Enabled = true },
			want:   config.ConfigDiff{RestartRequired: true},
		},
		{
			name:   "telemetry needs restart",
			mutate: func(c *config.Config) { c.Telemetry.Traces = config.TracesLog },
			want:   config.ConfigDiff{RestartRequired: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, updated := base(), base()
			tt.mutate(updated)

			got := config.Diff(old, updated)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("diff mismatch (-want +got):\n%s", diff)
			}
			if got.Changed() != (tt.want != config.ConfigDiff{}) {
				t.Errorf("Changed() = %v", got.Changed())
			}
		})
	}
}
