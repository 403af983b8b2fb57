// Package action dispatches resolved commands to a page: it highlights the
// target element, announces the action on the status line and performs it.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/internal/status"
	"github.com/MrWong99/voicenav/pkg/command"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// Sentinel errors returned by [Executor.Execute].
var (
	// ErrUnsupportedAction is returned for actions without a handler.
	ErrUnsupportedAction = errors.New("action: unsupported action")

	// ErrNoElement is returned when a target-requiring command has no resolved
	// element. Nothing is done on the page.
	ErrNoElement = errors.New("action: command has no element")
)

const defaultClearAfter = time.Second

// Page is the part of a [dom.Backend] the executor drives.
type Page interface {
	dom.Highlighter
	dom.Actuator
}

// Reporter receives status events. [*status.Board] implements it.
type Reporter interface {
	Report(ev status.Event)
}

// handler performs one action on the page.
type handler func(ctx context.Context, p Page, cmd command.Command) error

// handlers is the closed dispatch table; [command.Unknown] has no entry.
var handlers = map[command.Action]handler{
	command.Click: func(ctx context.Context, p Page, cmd command.Command) error {
		return p.Click(ctx, cmd.Element)
	},
	command.Focus: func(ctx context.Context, p Page, cmd command.Command) error {
		return p.Focus(ctx, cmd.Element)
	},
	command.Fill: func(ctx context.Context, p Page, cmd command.Command) error {
		if cmd.Value == "" {
			return nil
		}
		return p.Fill(ctx, cmd.Element, cmd.Value)
	},
	command.Scroll: func(ctx context.Context, p Page, cmd command.Command) error {
		dir := dom.DirectionDown
		if cmd.Value == command.ScrollUp {
			dir = dom.DirectionUp
		}
		return p.Scroll(ctx, dir)
	},
}

// Option configures an [Executor].
type Option func(*Executor)

// WithClearAfter sets how long highlights stay after a non-scroll action.
// The default is one second.
func WithClearAfter(d time.Duration) Option {
	return func(e *Executor) {
		e.clearAfter = d
	}
}

// WithMetrics records dispatches to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// Executor performs commands on a page. It also owns the page's highlight
// state: every highlight change goes through it so that a delayed clear never
// removes highlights added after it was scheduled.
//
// All methods are safe for concurrent use.
type Executor struct {
	page       Page
	reporter   Reporter
	clearAfter time.Duration
	metrics    *observe.Metrics

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	closed bool
}

// New returns an Executor acting on page and announcing actions to reporter.
func New(page Page, reporter Reporter, opts ...Option) *Executor {
	e := &Executor{
		page:       page,
		reporter:   reporter,
		clearAfter: defaultClearAfter,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Execute dispatches cmd. Commands needing a target must carry a resolved
// element. The target element is highlighted and the action announced before
// it is performed; for non-scroll actions highlights are cleared after the
// configured delay.
func (e *Executor) Execute(ctx context.Context, cmd command.Command) error {
	h, ok := handlers[cmd.Action]
	if !ok {
		e.metrics.RecordAction(ctx, cmd.Action.String(), "unsupported")
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, cmd.Action)
	}
	if !cmd.Ready() {
		e.metrics.RecordAction(ctx, cmd.Action.String(), "skipped")
		return ErrNoElement
	}

	log := observe.Logger(ctx)
	if cmd.Element != nil {
		if err := e.Highlight(ctx, []dom.Highlight{{Element: cmd.Element}}); err != nil {
			log.Warn("action: highlight target", "err", err)
		}
	}
	e.reporter.Report(status.Event{Kind: status.KindExecuting, Action: cmd.Action})

	err := h(ctx, e.page, cmd)

	if cmd.Action != command.Scroll {
		e.scheduleClear(context.WithoutCancel(ctx))
	}

	if err != nil {
		e.metrics.RecordAction(ctx, cmd.Action.String(), "error")
		return fmt.Errorf("action: %s: %w", cmd.Action, err)
	}
	e.metrics.RecordAction(ctx, cmd.Action.String(), "ok")
	log.Debug("action: executed", "action", cmd.Action.String(), "value", cmd.Value)
	return nil
}

// Highlight adds highlight markup for hs and cancels any pending delayed clear.
func (e *Executor) Highlight(ctx context.Context, hs []dom.Highlight) error {
	e.bump()
	return e.page.Highlight(ctx, hs)
}

// ClearHighlights removes all highlights now and cancels any pending delayed
// clear.
func (e *Executor) ClearHighlights(ctx context.Context) error {
	e.bump()
	return e.page.ClearHighlights(ctx)
}

// Close cancels any pending delayed clear.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// bump invalidates the pending delayed clear.
func (e *Executor) bump() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Executor) scheduleClear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	gen := e.gen
	e.timer = time.AfterFunc(e.clearAfter, func() {
		e.mu.Lock()
		if e.closed || e.gen != gen {
			e.mu.Unlock()
			return
		}
		e.timer = nil
		e.mu.Unlock()

		if err := e.page.ClearHighlights(ctx); err != nil {
			observe.Logger(ctx).Warn("action: clear highlights", "err", err)
		}
	})
}
