package app

import (
	"context"

	"github.com/MrWong99/voicenav/internal/config"
	"github.com/MrWong99/voicenav/pkg/dom"
	"github.com/MrWong99/voicenav/pkg/dom/htmlpage"
	"github.com/MrWong99/voicenav/pkg/dom/rodpage"
)

// DefaultRegistry returns a registry with the built-in backends: "rod" drives
// a Chromium tab, "html" parses a static document.
func DefaultRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.Register(config.BackendRod, func(ctx context.Context, cfg config.BrowserConfig) (dom.Backend, error) {
		p, err := rodpage.Open(ctx, rodpage.Config{
			ControlURL:        cfg.ControlURL,
			Bin:               cfg.Bin,
			Headless:          cfg.Headless,
			URL:               cfg.URL,
			NavigationTimeout: cfg.NavigationTimeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	reg.Register(config.BackendHTML, func(_ context.Context, cfg config.BrowserConfig) (dom.Backend, error) {
		p, err := htmlpage.Load(cfg.HTMLFile)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	return reg
}
