// Package dom defines the page view consumed by the voicenav command
// resolution pipeline.
//
// A [Page] produces point-in-time [Snapshot]s of the interactive elements of a
// document. Snapshots are read-only: nothing in the resolution pipeline mutates
// the element tree. Cosmetic highlighting is delegated to a [Highlighter] and
// user actions (click, focus, fill, scroll) to an [Actuator]. A [Backend] bundles
// all three for one concrete page implementation (a live browser tab, a parsed
// static document, or a test double).
package dom

import (
	"context"
	"strings"
)

// Kind is the interactive category an element was enumerated under.
type Kind string

const (
	// KindLink is an <a> element.
	KindLink Kind = "link"

	// KindButton is a <button> element.
	KindButton Kind = "button"

	// KindInput is an <input> element.
	KindInput Kind = "input"

	// KindRoleButton is any element carrying role="button".
	KindRoleButton Kind = "role-button"

	// KindTextarea is a <textarea> element.
	KindTextarea Kind = "textarea"

	// KindSelect is a <select> element.
	KindSelect Kind = "select"
)

// IsInteractive reports whether k is one of the interactive categories the
// element scorer considers.
func (k Kind) IsInteractive() bool {
	switch k {
	case KindLink, KindButton, KindInput, KindRoleButton, KindTextarea, KindSelect:
		return true
	}
	return false
}

// Editable reports whether elements of kind k accept a typed value.
func (k Kind) Editable() bool {
	return k == KindInput || k == KindTextarea
}

// KindOf classifies an element by tag name and role attribute. Tag-based
// categories take precedence over role="button". The boolean is false for
// elements outside the interactive universe.
func KindOf(tag, role string) (Kind, bool) {
	switch strings.ToLower(tag) {
	case "a":
		return KindLink, true
	case "button":
		return KindButton, true
	case "input":
		return KindInput, true
	case "textarea":
		return KindTextarea, true
	case "select":
		return KindSelect, true
	}
	if role == "button" {
		return KindRoleButton, true
	}
	return "", false
}

// Selector is the CSS selector matching the interactive element universe, in
// the form understood by browsers' querySelectorAll.
const Selector = `a, button, input, [role="button"], textarea, select`

// Element is a snapshot of one interactive page element.
//
// Pointer identity is the element's identity within a snapshot: commands and
// ambiguity candidates reference *Element values taken from the snapshot that
// produced them.
type Element struct {
	// Ref is a backend-assigned reference, unique within its snapshot.
	Ref string

	// Kind is the interactive category.
	Kind Kind

	// Tag is the lower-case tag name (e.g., "button").
	Tag string

	// ID is the element's id attribute, empty when absent.
	ID string

	// AriaLabel is the aria-label attribute, empty when absent.
	AriaLabel string

	// Placeholder is the placeholder attribute, empty when absent.
	Placeholder string

	// InnerText is the rendered text. Backends that cannot render leave it
	// empty; some report the literal "undefined".
	InnerText string

	// TextContent is the raw text content of the element's subtree.
	TextContent string

	// EnclosingLabel is the trimmed text content of the closest ancestor
	// <label>, empty when there is none.
	EnclosingLabel string

	// Width and Height are the rendered layout size (offsetWidth/offsetHeight).
	Width, Height float64

	// ClientRects is the number of client rectangles the element yields.
	ClientRects int

	// Handle is an opaque backend object used by the [Actuator] and
	// [Highlighter] that produced the snapshot.
	Handle any
}

// Visible reports whether the element is rendered: it has a non-zero width and
// height, or it yields at least one client rectangle.
func (e *Element) Visible() bool {
	if e == nil {
		return false
	}
	return (e.Width != 0 && e.Height != 0) || e.ClientRects > 0
}

// Text returns the element's user-visible text: InnerText when it is usable,
// TextContent otherwise.
func (e *Element) Text() string {
	if e.InnerText != "" && e.InnerText != "undefined" {
		return e.InnerText
	}
	return e.TextContent
}

// Label is a <label for="..."> found in the document.
type Label struct {
	// For is the id of the labelled control.
	For string

	// Text is the trimmed text content of the label.
	Text string
}

// Snapshot is a point-in-time view of a document's interactive elements.
type Snapshot struct {
	// Elements lists the interactive elements in document order.
	Elements []*Element

	// Labels lists every label[for] in document order.
	Labels []Label
}

// LabelFor returns a lookup from control id to label text. When several labels
// point at the same id the last one in document order wins.
func (s *Snapshot) LabelFor() map[string]string {
	m := make(map[string]string, len(s.Labels))
	for _, l := range s.Labels {
		if l.For == "" {
			continue
		}
		m[l.For] = l.Text
	}
	return m
}

// Page produces snapshots of a document.
type Page interface {
	// Snapshot enumerates the interactive elements of the current document.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Highlight marks an element on the page. Ordinal 0 is a plain highlight;
// positive ordinals are rendered as a numbered label for disambiguation.
type Highlight struct {
	Element *Element
	Ordinal int
}

// Highlighter adds and removes cosmetic highlight markup.
type Highlighter interface {
	// Highlight marks every element in hs.
	Highlight(ctx context.Context, hs []Highlight) error

	// ClearHighlights removes all highlight markup previously added.
	ClearHighlights(ctx context.Context) error
}

// Direction is a scroll direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Actuator performs user actions on elements of a snapshot it produced.
type Actuator interface {
	Click(ctx context.Context, el *Element) error
	Focus(ctx context.Context, el *Element) error

	// Fill focuses el and, when el is an input or textarea, replaces its value
	// and emits an input event.
	Fill(ctx context.Context, el *Element, value string) error

	// Scroll moves the viewport by a fixed fraction of its height.
	Scroll(ctx context.Context, dir Direction) error
}

// StatusDisplay is implemented by backends that can render the status line
// inside the page itself.
type StatusDisplay interface {
	// ShowStatus renders text. When visible is false the box is hidden but
	// keeps its text.
	ShowStatus(ctx context.Context, text string, visible bool) error
}

// Backend is a complete page implementation.
type Backend interface {
	Page
	Highlighter
	Actuator

	// Close releases the backend's resources.
	Close() error
}
