// Package navigator drives one voice navigation session: it turns each
// completed utterance into a page action, asking the user to pick a number
// when the spoken target matches several elements equally well.
package navigator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/voicenav/internal/ambiguity"
	"github.com/MrWong99/voicenav/internal/finder"
	"github.com/MrWong99/voicenav/internal/intent"
	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/internal/status"
	"github.com/MrWong99/voicenav/pkg/command"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// Dispatcher executes finalized commands and owns page highlights.
// [*action.Executor] implements it.
type Dispatcher interface {
	Execute(ctx context.Context, cmd command.Command) error
	Highlight(ctx context.Context, hs []dom.Highlight) error
	ClearHighlights(ctx context.Context) error
}

// Reporter receives status events. [*status.Board] implements it.
type Reporter interface {
	Report(ev status.Event)
}

// Option configures a [Navigator] during construction.
type Option func(*Navigator)

// WithID sets the session id. By default a random UUID is used.
func WithID(id string) Option {
	return func(n *Navigator) {
		n.id = id
	}
}

// WithFinder replaces the default element finder.
func WithFinder(f *finder.Finder) Option {
	return func(n *Navigator) {
		n.finder = f
	}
}

// WithParser replaces the default pt-BR parser.
func WithParser(p *intent.Parser) Option {
	return func(n *Navigator) {
		n.parser = p
	}
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(n *Navigator) {
		n.metrics = m
	}
}

// Navigator is one voice navigation session over a page.
//
// Utterances and listening changes are serialized: at most one resolution
// runs at a time, so concurrent surfaces (console, websocket, MCP) may share
// a Navigator. All exported methods are safe for concurrent use.
type Navigator struct {
	id       string
	page     dom.Page
	exec     Dispatcher
	reporter Reporter
	parser   *intent.Parser
	finder   *finder.Finder
	resolver *ambiguity.Resolver
	metrics  *observe.Metrics

	mu        sync.Mutex
	listening bool
	closed    bool
}

// New creates a session reading snapshots from page, dispatching through exec
// and reporting status to reporter.
func New(page dom.Page, exec Dispatcher, reporter Reporter, opts ...Option) *Navigator {
	n := &Navigator{
		page:     page,
		exec:     exec,
		reporter: reporter,
		resolver: ambiguity.New(),
	}
	for _, o := range opts {
		o(n)
	}
	if n.id == "" {
		n.id = uuid.NewString()
	}
	if n.parser == nil {
		n.parser = intent.New()
	}
	if n.finder == nil {
		n.finder = finder.New()
	}
	if n.metrics == nil {
		n.metrics = observe.DefaultMetrics()
	}
	n.metrics.ActiveSessions.Add(context.Background(), 1)
	return n
}

// ID returns the session id.
func (n *Navigator) ID() string {
	return n.id
}

// Listening reports whether a listening session is active.
func (n *Navigator) Listening() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listening
}

// AwaitingChoice reports whether the next utterance will be read as a
// numeric choice.
func (n *Navigator) AwaitingChoice() bool {
	return n.resolver.Active()
}

// Candidates returns the elements awaiting a choice, nil when none.
func (n *Navigator) Candidates() []*dom.Element {
	return n.resolver.Candidates()
}

// Close ends the session. It does not close the page.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.resolver.Reset()
	n.metrics.ActiveSessions.Add(context.Background(), -1)
}

// SetListening starts or stops a listening session. Starting one discards any
// pending disambiguation and clears highlights.
func (n *Navigator) SetListening(ctx context.Context, active bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx = observe.WithSession(ctx, n.id)
	n.listening = active
	if !active {
		n.reporter.Report(status.Event{Kind: status.KindIdle})
		return nil
	}

	n.resolver.Reset()
	err := n.exec.ClearHighlights(ctx)
	n.reporter.Report(status.Event{Kind: status.KindListening})
	if err != nil {
		return fmt.Errorf("navigator: clear highlights: %w", err)
	}
	observe.Logger(ctx).Debug("navigator: listening started")
	return nil
}

// Recognizer error codes with a dedicated message.
const (
	RecognizerNoSpeech     = "no-speech"
	RecognizerNotSupported = "not-supported"
)

// ReportRecognizerError surfaces a speech recognizer failure.
// [RecognizerNoSpeech] and [RecognizerNotSupported] get their own messages;
// other codes are shown verbatim.
func (n *Navigator) ReportRecognizerError(code string) {
	switch code {
	case RecognizerNoSpeech:
		n.reporter.Report(status.Event{Kind: status.KindNoSpeech})
	case RecognizerNotSupported:
		n.reporter.Report(status.Event{Kind: status.KindUnsupported})
	default:
		n.reporter.Report(status.Event{Kind: status.KindRecognizerError, Raw: code})
	}
}

// Handle resolves one completed utterance. The returned error reports page or
// dispatch failures only; user-facing failures are described by the
// [Outcome] (see [Outcome.Err]).
func (n *Navigator) Handle(ctx context.Context, utterance string) (Outcome, error) {
	start := time.Now()
	ctx = observe.WithSession(ctx, n.id)
	ctx, span := observe.StartSpan(ctx, "navigator.handle")
	defer span.End()

	n.mu.Lock()
	defer n.mu.Unlock()

	text := intent.Normalize(utterance)
	n.reporter.Report(status.Event{Kind: status.KindHeard, Raw: text})

	out, err := n.resolve(ctx, text)
	out.Raw = text

	n.metrics.RecordUtterance(ctx, out.Kind.String(), time.Since(start).Seconds())
	span.SetAttributes(
		observe.Attr("voicenav.outcome", out.Kind.String()),
		observe.Attr("voicenav.action", out.Command.Action.String()),
	)

	log := observe.Logger(ctx)
	if err != nil {
		span.RecordError(err)
		log.Error("navigator: handle utterance", "utterance", text, "outcome", out.Kind.String(), "err", err)
		return out, err
	}
	log.Info("navigator: utterance handled",
		"utterance", text,
		"outcome", out.Kind.String(),
		"action", out.Command.Action.String(),
		"target", out.Command.Target,
	)
	return out, nil
}

// Find returns the elements of the current page matching description, without
// touching session state or the page.
func (n *Navigator) Find(ctx context.Context, description string) ([]finder.Scored, error) {
	n.mu.Lock()
	f := n.finder
	n.mu.Unlock()

	snap, err := n.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return f.Find(snap, description), nil
}

// SetFinder replaces the element finder for subsequent utterances. A pending
// choice keeps its candidates.
func (n *Navigator) SetFinder(f *finder.Finder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finder = f
}

func (n *Navigator) resolve(ctx context.Context, text string) (Outcome, error) {
	if err := n.exec.ClearHighlights(ctx); err != nil {
		observe.Logger(ctx).Warn("navigator: clear highlights", "err", err)
	}

	if n.resolver.Active() {
		cmd, ok := n.resolver.Resolve(text)
		if !ok {
			n.reporter.Report(status.Event{Kind: status.KindInvalidChoice, Raw: text})
			return Outcome{Kind: OutcomeInvalidChoice}, nil
		}
		return n.dispatch(ctx, cmd)
	}

	cmd, ok := n.parser.Parse(text)
	if !ok {
		n.reporter.Report(status.Event{Kind: status.KindUnrecognized})
		return Outcome{Kind: OutcomeUnrecognized}, nil
	}

	if cmd.Action == command.Scroll {
		return n.dispatch(ctx, cmd)
	}

	if cmd.Target == "" {
		n.reporter.Report(status.Event{Kind: status.KindInvalidTarget})
		return Outcome{Kind: OutcomeMissingTarget, Command: cmd}, nil
	}

	snap, err := n.snapshot(ctx)
	if err != nil {
		n.reporter.Report(status.Event{Kind: status.KindPageError})
		return Outcome{Kind: OutcomePageError, Command: cmd, Target: cmd.Target}, err
	}
	results := n.finder.Find(snap, cmd.Target)
	n.metrics.FinderCandidates.Record(ctx, int64(len(results)))

	if len(results) == 0 {
		n.reporter.Report(status.Event{Kind: status.KindNotFound, Target: cmd.Target})
		return Outcome{Kind: OutcomeNotFound, Command: cmd, Target: cmd.Target}, nil
	}

	best := finder.BestSet(results)
	if len(best) > 1 {
		hs := n.resolver.Begin(cmd, best)
		n.reporter.Report(status.Event{Kind: status.KindAmbiguous, Count: len(best)})
		out := Outcome{Kind: OutcomeAmbiguous, Command: cmd, Target: cmd.Target, Candidates: best}
		if err := n.exec.Highlight(ctx, hs); err != nil {
			return out, fmt.Errorf("navigator: highlight candidates: %w", err)
		}
		return out, nil
	}

	return n.dispatch(ctx, cmd.WithElement(best[0]))
}

func (n *Navigator) dispatch(ctx context.Context, cmd command.Command) (Outcome, error) {
	out := Outcome{Kind: OutcomeDispatched, Command: cmd}
	if err := n.exec.Execute(ctx, cmd); err != nil {
		return out, fmt.Errorf("navigator: dispatch %s: %w", cmd.Action, err)
	}
	return out, nil
}

func (n *Navigator) snapshot(ctx context.Context) (*dom.Snapshot, error) {
	start := time.Now()
	snap, err := n.page.Snapshot(ctx)
	n.metrics.SnapshotDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("navigator: snapshot: %w", err)
	}
	return snap, nil
}
