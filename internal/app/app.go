// Package app wires all voicenav subsystems into a running application.
//
// The App struct owns the full lifecycle: New opens the page backend and
// builds the status board, executor, navigator and surfaces, Run serves them
// until the context ends, and Shutdown tears everything down in reverse
// order.
//
// For testing, inject doubles via functional options (WithBackend,
// WithMetrics, WithConsoleIO). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voicenav/internal/action"
	"github.com/MrWong99/voicenav/internal/config"
	"github.com/MrWong99/voicenav/internal/console"
	"github.com/MrWong99/voicenav/internal/finder"
	"github.com/MrWong99/voicenav/internal/gateway"
	"github.com/MrWong99/voicenav/internal/health"
	"github.com/MrWong99/voicenav/internal/navigator"
	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/internal/resilience"
	"github.com/MrWong99/voicenav/internal/status"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// readHeaderTimeout bounds slow clients on the HTTP server.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	// Subsystems, initialised in New and torn down in Shutdown.
	registry *config.Registry
	backend  dom.Backend
	page     *resilience.Backend
	board    *status.Board
	exec     *action.Executor
	nav      *navigator.Navigator
	metrics  *observe.Metrics
	level    *slog.LevelVar
	console  *console.Console
	listener net.Listener
	server   *http.Server

	consoleIn  io.Reader
	consoleOut io.Writer
	origins    []string

	// closers run in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithBackend uses b instead of opening the backend selected by the config.
// The App takes ownership and closes b on Shutdown.
func WithBackend(b dom.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithRegistry opens the backend through r instead of [DefaultRegistry].
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets [App.ApplyConfig] change the level of the logger that
// was built around lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithConsoleIO replaces stdin and stdout for the console surface.
func WithConsoleIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.consoleIn = in
		a.consoleOut = out
	}
}

// WithOriginPatterns allows cross-origin websocket clients.
func WithOriginPatterns(patterns ...string) Option {
	return func(a *App) { a.origins = patterns }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. When the config has a
// listen address the TCP listener is bound here, so [App.Addr] is valid
// before Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:        cfg,
		consoleIn:  os.Stdin,
		consoleOut: os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(cfg.Server.LogLevel.Level())
	}

	if err := a.initBackend(ctx); err != nil {
		return nil, err
	}
	a.initSession()
	if err := a.initHTTP(); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, err
	}
	a.initConsole()

	return a, nil
}

func (a *App) initBackend(ctx context.Context) error {
	if a.backend == nil {
		reg := a.registry
		if reg == nil {
			reg = DefaultRegistry()
		}
		b, err := reg.Create(ctx, a.cfg.Browser)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.backend = b
	}
	a.closers = append(a.closers, a.backend.Close)
	a.page = resilience.Guard(a.backend, resilience.Config{
		Name:        "page",
		MaxFailures: a.cfg.Browser.BreakerFailures,
		Cooldown:    a.cfg.Browser.BreakerCooldown,
	})
	return nil
}

func (a *App) initSession() {
	a.board = status.NewBoard(status.WithDurations(durations(a.cfg.Navigator)))
	a.closers = append(a.closers, func() error {
		a.board.Close()
		return nil
	})

	if sd, ok := a.backend.(dom.StatusDisplay); ok {
		m := newStatusMirror(sd)
		cancel := a.board.Subscribe(m.offer)
		a.closers = append(a.closers, func() error {
			cancel()
			m.close()
			return nil
		})
	}

	execOpts := []action.Option{action.WithMetrics(a.metrics)}
	if d := a.cfg.Navigator.HighlightClear; d > 0 {
		execOpts = append(execOpts, action.WithClearAfter(d))
	}
	a.exec = action.New(a.page, a.board, execOpts...)
	a.closers = append(a.closers, func() error {
		a.exec.Close()
		return nil
	})

	a.nav = navigator.New(a.page, a.exec, a.board,
		navigator.WithFinder(finder.New(finder.WithFuzzyThreshold(a.cfg.Finder.FuzzyThreshold))),
		navigator.WithMetrics(a.metrics),
	)
	a.closers = append(a.closers, func() error {
		a.nav.Close()
		return nil
	})
	slog.Info("app: session ready", "session", a.nav.ID(), "backend", a.cfg.Browser.Backend)
}

func (a *App) initHTTP() error {
	if a.cfg.Server.ListenAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	gateway.New(a.nav, a.board, gateway.WithOriginPatterns(a.origins...)).Register(mux)
	health.New(
		health.Checker{Name: "breaker", Check: a.page.Check},
		health.PageChecker(a.page),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.cfg.Server.ListenAddr, err)
	}
	a.listener = ln
	a.server = &http.Server{
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

func (a *App) initConsole() {
	if !a.cfg.Console.Enabled {
		return
	}
	a.console = console.New(a.nav, a.consoleIn, a.consoleOut)
	cancel := a.board.Subscribe(a.console.Present)
	a.closers = append(a.closers, func() error {
		cancel()
		return nil
	})
}

// Navigator returns the session shared by all surfaces.
func (a *App) Navigator() *navigator.Navigator { return a.nav }

// Board returns the session's status line.
func (a *App) Board() *status.Board { return a.board }

// Addr returns the bound HTTP address, nil when the server is disabled.
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP server and the console until ctx is cancelled or the
// console exits. A normal stop returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		eg.Go(func() error {
			slog.Info("app: http server listening", "addr", a.listener.Addr().String())
			if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: serve http: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	if a.console != nil {
		eg.Go(func() error {
			// The console ending (EOF or :sair) stops the whole app.
			defer cancel()
			err := a.console.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	slog.Info("app running", "session", a.nav.ID(), "http", a.server != nil, "console", a.console != nil)
	<-ctx.Done()
	return eg.Wait()
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable parts of updated. It is meant to be
// passed to [config.NewWatcher] as the change callback.
func (a *App) ApplyConfig(old, updated *config.Config) {
	diff := config.Diff(old, updated)
	if diff.LogLevelChanged {
		a.level.Set(diff.NewLogLevel.Level())
		slog.Info("app: log level changed", "level", diff.NewLogLevel)
	}
	if diff.FuzzyThresholdChanged {
		a.nav.SetFinder(finder.New(finder.WithFuzzyThreshold(diff.NewFuzzyThreshold)))
		slog.Info("app: fuzzy threshold changed", "threshold", diff.NewFuzzyThreshold)
	}
	if diff.TimingChanged {
		a.board.SetDurations(durations(updated.Navigator))
		if old.Navigator.HighlightClear != updated.Navigator.HighlightClear {
			slog.Warn("app: highlight_clear change takes effect after restart")
		}
	}
	if diff.RestartRequired {
		slog.Warn("app: config change requires a restart to take effect")
	}
	a.cfg = updated
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("app: shutting down", "closers", len(a.closers))

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("app: http shutdown", "err", err)
			}
		}
		if a.listener != nil {
			// Serve never ran when Run was skipped.
			_ = a.listener.Close()
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("app: shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("app: closer error", "index", i, "err", err)
			}
		}
		slog.Info("app: shutdown complete")
	})
	return shutdownErr
}

// durations maps the navigator config onto board durations, keeping the
// defaults for zero values.
func durations(c config.NavigatorConfig) status.Durations {
	d := status.DefaultDurations()
	if c.ErrorDuration > 0 {
		d.Error = c.ErrorDuration
	}
	if c.ActionDuration > 0 {
		d.Executing = c.ActionDuration
	}
	if c.UnsupportedDuration > 0 {
		d.Unsupported = c.UnsupportedDuration
	}
	return d
}
