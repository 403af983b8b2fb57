package resilience

import (
	"context"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// Backend is a [dom.Backend] whose page calls go through a [Breaker].
// Close is always forwarded.
type Backend struct {
	next    dom.Backend
	breaker *Breaker
}

var _ dom.Backend = (*Backend)(nil)

// Guard wraps next with a breaker built from cfg.
func Guard(next dom.Backend, cfg Config) *Backend {
	if cfg.Name == "" {
		cfg.Name = "page"
	}
	return &Backend{next: next, breaker: NewBreaker(cfg)}
}

// Breaker returns the breaker guarding the backend.
func (g *Backend) Breaker() *Breaker { return g.breaker }

// Unwrap returns the guarded backend.
func (g *Backend) Unwrap() dom.Backend { return g.next }

// Check reports [ErrCircuitOpen] while the breaker is open. It is suitable as
// a readiness check.
func (g *Backend) Check(context.Context) error {
	if g.breaker.State() == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (g *Backend) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	var snap *dom.Snapshot
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = g.next.Snapshot(ctx)
		return err
	})
	return snap, err
}

func (g *Backend) Highlight(ctx context.Context, hs []dom.Highlight) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error { return g.next.Highlight(ctx, hs) })
}

func (g *Backend) ClearHighlights(ctx context.Context) error {
	return g.breaker.Do(ctx, g.next.ClearHighlights)
}

func (g *Backend) Click(ctx context.Context, el *dom.Element) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error { return g.next.Click(ctx, el) })
}

func (g *Backend) Focus(ctx context.Context, el *dom.Element) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error { return g.next.Focus(ctx, el) })
}

func (g *Backend) Fill(ctx context.Context, el *dom.Element, value string) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error { return g.next.Fill(ctx, el, value) })
}

func (g *Backend) Scroll(ctx context.Context, dir dom.Direction) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error { return g.next.Scroll(ctx, dir) })
}

func (g *Backend) Close() error {
	return g.next.Close()
}
