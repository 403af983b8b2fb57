package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voicenav/internal/app"
	"github.com/MrWong99/voicenav/internal/config"
	"github.com/MrWong99/voicenav/internal/observe"
)

const shutdownTimeout = 15 * time.Second

func newRunCmd(opts *options) *cobra.Command {
	var (
		listen  string
		console bool
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the configured page and serve the websocket gateway and console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Server.ListenAddr = listen
			}
			if cmd.Flags().Changed("console") {
				cfg.Console.Enabled = console
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownOTel, err := initTelemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer shutdownOTel()

			slog.Info("voicenav starting",
				"version", version,
				"backend", cfg.Browser.Backend,
				"url", cfg.Browser.URL,
				"listen_addr", cfg.Server.ListenAddr,
				"console", cfg.Console.Enabled,
			)

			a, err := app.New(ctx, cfg, app.WithLevelVar(opts.level), app.WithOriginPatterns(origins...))
			if err != nil {
				return err
			}

			if w := watchConfig(opts.configPath, cfg, a); w != nil {
				defer w.Stop()
			}

			runErr := a.Run(ctx)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				slog.Error("run error", "err", runErr)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			slog.Info("goodbye")
			return runErr
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides server.listen_addr)")
	cmd.Flags().BoolVar(&console, "console", false, "read utterances from stdin (overrides console.enabled)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "extra origin patterns allowed to open the websocket")
	return cmd
}

// initTelemetry registers the OpenTelemetry providers described by cfg. The
// returned function flushes them.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	pc := observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Backend:        string(cfg.Browser.Backend),
		PageURL:        cfg.Browser.URL,
	}
	if cfg.Telemetry.Traces == config.TracesLog {
		pc.TraceExporter = observe.NewLogExporter(slog.Default())
	}
	shutdown, err := observe.InitProvider(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}, nil
}

// watchConfig hot-reloads path into a. It returns nil when there is no file
// to watch.
func watchConfig(path string, initial *config.Config, a *app.App) *config.Watcher {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	current := initial
	w, err := config.NewWatcher(path, func(_, updated *config.Config) {
		if err := config.ApplyEnv(updated, os.LookupEnv); err != nil {
			slog.Warn("config reload rejected", "err", err)
			return
		}
		a.ApplyConfig(current, updated)
		current = updated
	})
	if err != nil {
		slog.Warn("config watcher disabled", "path", path, "err", err)
		return nil
	}
	return w
}
