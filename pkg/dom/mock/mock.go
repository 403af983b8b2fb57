// Package mock provides test doubles for the dom package interfaces.
//
// Backend serves a fixed [dom.Snapshot] and records every highlight and action
// it is asked to perform, so tests can assert on what the navigator did to
// the page without a browser.
//
// Example:
//
//	b := &mock.Backend{Snap: &dom.Snapshot{Elements: els}}
//	nav := navigator.New(b, ...)
//	nav.Handle(ctx, "clicar em enviar")
//	// b.ClickCalls[0].Element == els[0]
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// ElementCall records an action performed on an element.
type ElementCall struct {
	Element *dom.Element
	// Value is the fill value; empty for click and focus.
	Value string
}

// Backend is a mock implementation of [dom.Backend].
type Backend struct {
	mu sync.Mutex

	// Snap is returned by Snapshot. A nil Snap yields an empty snapshot.
	Snap *dom.Snapshot

	// SnapshotErr, if non-nil, is returned by Snapshot.
	SnapshotErr error

	// HighlightErr, if non-nil, is returned by Highlight and ClearHighlights.
	HighlightErr error

	// ActionErr, if non-nil, is returned by Click, Focus, Fill and Scroll.
	ActionErr error

	// --- Call records ---

	// SnapshotCount is the number of Snapshot calls.
	SnapshotCount int

	// HighlightCalls records the highlights of every Highlight call.
	HighlightCalls [][]dom.Highlight

	// ClearCount is the number of ClearHighlights calls.
	ClearCount int

	ClickCalls  []ElementCall
	FocusCalls  []ElementCall
	FillCalls   []ElementCall
	ScrollCalls []dom.Direction

	// CloseCount is the number of Close calls.
	CloseCount int
}

// Snapshot records the call and returns Snap, SnapshotErr.
func (b *Backend) Snapshot(_ context.Context) (*dom.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SnapshotCount++
	if b.SnapshotErr != nil {
		return nil, b.SnapshotErr
	}
	if b.Snap == nil {
		return &dom.Snapshot{}, nil
	}
	return b.Snap, nil
}

// Highlight records a copy of hs.
func (b *Backend) Highlight(_ context.Context, hs []dom.Highlight) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.HighlightCalls = append(b.HighlightCalls, slices.Clone(hs))
	return b.HighlightErr
}

// ClearHighlights records the call.
func (b *Backend) ClearHighlights(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ClearCount++
	return b.HighlightErr
}

// Click records the call.
func (b *Backend) Click(_ context.Context, el *dom.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ClickCalls = append(b.ClickCalls, ElementCall{Element: el})
	return b.ActionErr
}

// Focus records the call.
func (b *Backend) Focus(_ context.Context, el *dom.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FocusCalls = append(b.FocusCalls, ElementCall{Element: el})
	return b.ActionErr
}

// Fill records the call.
func (b *Backend) Fill(_ context.Context, el *dom.Element, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FillCalls = append(b.FillCalls, ElementCall{Element: el, Value: value})
	return b.ActionErr
}

// Scroll records the call.
func (b *Backend) Scroll(_ context.Context, dir dom.Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ScrollCalls = append(b.ScrollCalls, dir)
	return b.ActionErr
}

// Close records the call.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	return nil
}

// Actions returns the total number of click, focus, fill and scroll calls.
func (b *Backend) Actions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ClickCalls) + len(b.FocusCalls) + len(b.FillCalls) + len(b.ScrollCalls)
}

// Highlights returns a copy of the recorded Highlight calls.
func (b *Backend) Highlights() [][]dom.Highlight {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.HighlightCalls)
}

// Clears returns the number of ClearHighlights calls.
func (b *Backend) Clears() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ClearCount
}

// Reset clears all recorded calls.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SnapshotCount = 0
	b.HighlightCalls = nil
	b.ClearCount = 0
	b.ClickCalls = nil
	b.FocusCalls = nil
	b.FillCalls = nil
	b.ScrollCalls = nil
	b.CloseCount = 0
}

var _ dom.Backend = (*Backend)(nil)
