// Package htmlpage implements [dom.Backend] over a static HTML document
// parsed with golang.org/x/net/html.
//
// There is no layout engine: an element counts as rendered unless it, or an
// ancestor, is hidden by the hidden attribute, an inline display:none or
// visibility:hidden style, or is an input of type hidden. Rendered elements get
// a nominal geometry so the usual visibility rule applies. Actions and
// highlights are recorded in memory; Fill updates the recorded value of the
// control.
package htmlpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// ErrUnknownElement is returned when an action targets an element that was
// not produced by this page.
var ErrUnknownElement = errors.New("htmlpage: element not found in document")

const (
	defaultViewport = 800
	scrollFraction  = 0.7

	nominalWidth  = 100
	nominalHeight = 20
)

// Option configures a [Page].
type Option func(*Page)

// WithViewportHeight sets the simulated viewport height in pixels used by
// Scroll. The default is 800.
func WithViewportHeight(h float64) Option {
	return func(p *Page) {
		p.viewport = h
	}
}

// Page is a parsed static document. It is safe for concurrent use.
type Page struct {
	mu       sync.Mutex
	doc      *html.Node
	nodes    map[string]*html.Node
	refs     map[*html.Node]string
	viewport float64

	values     map[string]string
	focused    string
	scrollY    float64
	clicks     []string
	highlights []dom.Highlight
	status     string
	statusShow bool
}

var (
	_ dom.Backend       = (*Page)(nil)
	_ dom.StatusDisplay = (*Page)(nil)
)

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: parse: %w", err)
	}
	p := &Page{
		doc:      doc,
		nodes:    make(map[string]*html.Node),
		refs:     make(map[*html.Node]string),
		viewport: defaultViewport,
		values:   make(map[string]string),
	}
	for _, o := range opts {
		o(p)
	}
	p.index()
	return p, nil
}

// ParseString parses an HTML document held in s.
func ParseString(s string, opts ...Option) (*Page, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Load parses the HTML file at path.
func Load(path string, opts ...Option) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: open: %w", err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// index assigns stable refs to interactive elements in document order and
// records the initial value of form controls.
func (p *Page) index() {
	n := 0
	walk(p.doc, func(node *html.Node) {
		if _, ok := kindOf(node); !ok {
			return
		}
		n++
		ref := fmt.Sprintf("e%d", n)
		p.nodes[ref] = node
		p.refs[node] = ref
		if v, ok := attr(node, "value"); ok {
			p.values[ref] = v
		} else if node.DataAtom == atom.Textarea {
			p.values[ref] = textContent(node)
		}
	})
}

// Snapshot enumerates the interactive elements of the document.
func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &dom.Snapshot{}
	var visit func(node *html.Node, hidden bool, label *html.Node)
	visit = func(node *html.Node, hidden bool, label *html.Node) {
		if node.Type == html.ElementNode {
			hidden = hidden || isHidden(node)
			if node.DataAtom == atom.Label {
				if forID, ok := attr(node, "for"); ok {
					snap.Labels = append(snap.Labels, dom.Label{For: forID, Text: strings.TrimSpace(textContent(node))})
				}
			}
			if kind, ok := kindOf(node); ok {
				snap.Elements = append(snap.Elements, p.element(node, kind, hidden, label))
			}
			if node.DataAtom == atom.Label {
				label = node
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c, hidden, label)
		}
	}
	visit(p.doc, false, nil)
	return snap, nil
}

func (p *Page) element(node *html.Node, kind dom.Kind, hidden bool, label *html.Node) *dom.Element {
	el := &dom.Element{
		Ref:         p.refs[node],
		Kind:        kind,
		Tag:         node.Data,
		TextContent: textContent(node),
		InnerText:   innerText(node),
		Handle:      node,
	}
	el.ID, _ = attr(node, "id")
	el.AriaLabel, _ = attr(node, "aria-label")
	el.Placeholder, _ = attr(node, "placeholder")
	if label != nil {
		el.EnclosingLabel = strings.TrimSpace(textContent(label))
	}
	if !hidden {
		el.Width, el.Height, el.ClientRects = nominalWidth, nominalHeight, 1
	}
	return el
}

// Highlight records hs.
func (p *Page) Highlight(_ context.Context, hs []dom.Highlight) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hs {
		if _, err := p.lookup(h.Element); err != nil {
			return err
		}
	}
	p.highlights = append(p.highlights, hs...)
	return nil
}

// ClearHighlights drops all recorded highlights.
func (p *Page) ClearHighlights(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highlights = nil
	return nil
}

// Click records a click on el.
func (p *Page) Click(_ context.Context, el *dom.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.clicks = append(p.clicks, ref)
	return nil
}

// Focus moves focus to el.
func (p *Page) Focus(_ context.Context, el *dom.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.focused = ref
	return nil
}

// Fill focuses el and, for inputs and textareas, replaces its value.
func (p *Page) Fill(_ context.Context, el *dom.Element, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.focused = ref
	if kind, _ := kindOf(p.nodes[ref]); kind.Editable() {
		p.values[ref] = value
	}
	return nil
}

// Scroll moves the simulated viewport by 70% of its height. The offset never
// goes below zero.
func (p *Page) Scroll(_ context.Context, dir dom.Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delta := p.viewport * scrollFraction
	if dir == dom.DirectionUp {
		delta = -delta
	}
	p.scrollY = max(0, p.scrollY+delta)
	return nil
}

// ShowStatus records the status line.
func (p *Page) ShowStatus(_ context.Context, text string, visible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status, p.statusShow = text, visible
	return nil
}

// Status returns the last status text and whether it is shown.
func (p *Page) Status() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.statusShow
}

// Close is a no-op.
func (p *Page) Close() error { return nil }

// Value returns the current value of the form control ref.
func (p *Page) Value(ref string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[ref]
}

// Focused returns the ref of the focused element, empty when none.
func (p *Page) Focused() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// Clicks returns the refs of clicked elements in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.clicks)
}

// ScrollY returns the simulated vertical scroll offset.
func (p *Page) ScrollY() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY
}

// Highlights returns the highlights currently shown.
func (p *Page) Highlights() []dom.Highlight {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.highlights)
}

// lookup resolves el to its ref. p.mu must be held.
func (p *Page) lookup(el *dom.Element) (string, error) {
	if el == nil {
		return "", ErrUnknownElement
	}
	node, ok := el.Handle.(*html.Node)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownElement, el.Ref)
	}
	ref, ok := p.refs[node]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownElement, el.Ref)
	}
	return ref, nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func kindOf(n *html.Node) (dom.Kind, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	role, _ := attr(n, "role")
	return dom.KindOf(n.Data, role)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// isHidden reports whether n itself is not rendered.
func isHidden(n *html.Node) bool {
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if n.DataAtom == atom.Input {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	style, _ := attr(n, "style")
	for decl := range strings.SplitSeq(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		if (prop == "display" && val == "none") || (prop == "visibility" && val == "hidden") {
			return true
		}
	}
	return false
}

// textContent concatenates every text node below n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

// innerText approximates rendered text: script, style and hidden subtrees are
// skipped and whitespace runs collapse to one space.
func innerText(n *html.Node) string {
	var parts []string
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			parts = append(parts, n.Data)
			return
		case n.Type == html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style || isHidden(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
