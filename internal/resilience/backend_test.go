package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/voicenav/internal/resilience"
	"github.com/MrWong99/voicenav/pkg/dom"
	"github.com/MrWong99/voicenav/pkg/dom/mock"
)

func TestGuard_ForwardsCalls(t *testing.T) {
	t.Parallel()

	el := &dom.Element{Ref: "e1", Kind: dom.KindInput}
	b := &mock.Backend{Snap: &dom.Snapshot{Elements: []*dom.Element{el}}}
	g := resilience.Guard(b, resilience.Config{})
	ctx := context.Background()

	snap, err := g.Snapshot(ctx)
	if err != nil || len(snap.Elements) != 1 {
		t.Fatalf("Snapshot = %v, %v", snap, err)
	}
	if err := g.Highlight(ctx, []dom.Highlight{{Element: el, Ordinal: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := g.ClearHighlights(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Click(ctx, el); err != nil {
		t.Fatal(err)
	}
	if err := g.Focus(ctx, el); err != nil {
		t.Fatal(err)
	}
	if err := g.Fill(ctx, el, "x"); err != nil {
		t.Fatal(err)
	}
	if err := g.Scroll(ctx, dom.DirectionDown); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	if b.Actions() != 4 || b.ClearCount != 1 || len(b.Highlights()) != 1 || b.CloseCount != 1 {
		t.Errorf("calls not forwarded: actions=%d clears=%d highlights=%d closes=%d",
			b.Actions(), b.ClearCount, len(b.Highlights()), b.CloseCount)
	}
	if g.Unwrap() != dom.Backend(b) {
		t.Error("Unwrap returned a different backend")
	}
}

func TestGuard_OpensOnFailingPage(t *testing.T) {
	t.Parallel()

	crashed := errors.New("target closed")
	b := &mock.Backend{SnapshotErr: crashed}
	g := resilience.Guard(b, resilience.Config{MaxFailures: 2, Cooldown: time.Hour})
	ctx := context.Background()

	for range 2 {
		if _, err := g.Snapshot(ctx); !errors.Is(err, crashed) {
			t.Fatalf("Snapshot = %v, want the page error", err)
		}
	}
	if err := g.Check(ctx); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Check = %v, want ErrCircuitOpen", err)
	}

	before := b.SnapshotCount
	if _, err := g.Snapshot(ctx); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Snapshot = %v, want ErrCircuitOpen", err)
	}
	if b.SnapshotCount != before {
		t.Error("open breaker still reached the page")
	}
	if err := g.Close(); err != nil || b.CloseCount != 1 {
		t.Errorf("Close not forwarded while open: %v", err)
	}
}
