// Package rodpage implements [dom.Backend] on a live Chromium tab driven
// through the DevTools protocol with go-rod.
//
// A snapshot takes two round trips regardless of page size: one to obtain
// element handles for [dom.Selector] and one script evaluation that receives
// those handles as arguments and describes each of them (plus every
// label[for]). Descriptions therefore always belong to the handle they are
// paired with, even when the document changes in between.
package rodpage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// ErrForeignElement is returned when an action targets an element that was
// not produced by a rodpage snapshot.
var ErrForeignElement = errors.New("rodpage: element has no browser handle")

// ErrSnapshotMismatch is returned when the page describes a different number
// of elements than it was handed.
var ErrSnapshotMismatch = errors.New("rodpage: element descriptions do not match handles")

const defaultNavigationTimeout = 30 * time.Second

// Config selects the browser and the page to open.
type Config struct {
	// ControlURL is the DevTools websocket URL of a running browser. When
	// empty a browser is launched.
	ControlURL string

	// Bin is the browser binary used when launching. Empty lets the launcher
	// find or download one.
	Bin string

	// Headless launches the browser without a window.
	Headless bool

	// URL is opened in a new tab. Empty opens about:blank.
	URL string

	// NavigationTimeout bounds the initial page load. Zero uses 30s.
	NavigationTimeout time.Duration
}

// Page is a browser tab. It is safe for concurrent use; go-rod serializes
// protocol calls per page.
type Page struct {
	browser  *rod.Browser
	page     *rod.Page
	launched *launcher.Launcher
	log      *slog.Logger

	// closeTab closes only the tab opened by Open. closeBrowser is set only
	// for launched browsers; a browser reached through ControlURL belongs to
	// the user and stays up.
	closeTab     func() error
	closeBrowser func() error
}

var (
	_ dom.Backend       = (*Page)(nil)
	_ dom.StatusDisplay = (*Page)(nil)
)

// Open connects to (or launches) a browser and opens cfg.URL in a new tab.
func Open(ctx context.Context, cfg Config) (*Page, error) {
	p := &Page{log: slog.With("component", "rodpage")}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("rodpage: launch browser: %w", err)
		}
		controlURL = u
		p.launched = l
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		p.kill()
		return nil, fmt.Errorf("rodpage: connect: %w", err)
	}
	// Detach the browser from the dial context; each call scopes its own.
	p.browser = browser.Context(context.Background())
	if p.launched != nil {
		p.closeBrowser = p.browser.Close
	}

	page, err := p.browser.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("rodpage: open tab: %w", err)
	}
	p.page = page
	p.closeTab = page.Close

	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	if cfg.URL != "" {
		if err := page.Context(ctx).Timeout(timeout).WaitLoad(); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("rodpage: load %s: %w", cfg.URL, err)
		}
	}
	p.log.Info("rodpage: tab ready", "url", cfg.URL, "control_url", controlURL)
	return p, nil
}

// Navigate loads url in the tab.
func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("rodpage: navigate: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("rodpage: navigate: %w", err)
	}
	return nil
}

// descriptor is the per-element record produced by describeJS.
type descriptor struct {
	Tag            string  `json:"tag"`
	Role           string  `json:"role"`
	ID             string  `json:"id"`
	AriaLabel      string  `json:"aria"`
	Placeholder    string  `json:"placeholder"`
	InnerText      string  `json:"innerText"`
	TextContent    string  `json:"textContent"`
	EnclosingLabel string  `json:"enclosingLabel"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Rects          int     `json:"rects"`
}

type description struct {
	Elements []descriptor `json:"elements"`
	Labels   []struct {
		For  string `json:"for"`
		Text string `json:"text"`
	} `json:"labels"`
}

// describeJS describes exactly the elements passed as arguments, in argument
// order. A node detached since the handles were taken has no client rects and
// is therefore never visible. innerText is passed through as-is, including
// the "undefined" some engines report for non-rendered nodes.
const describeJS = `(...els) => {
	const str = (v) => (v === null || v === undefined) ? '' : String(v);
	const elements = els.map((el) => {
		const label = el.closest('label');
		return {
			tag: el.tagName.toLowerCase(),
			role: str(el.getAttribute('role')),
			id: str(el.id),
			aria: str(el.getAttribute('aria-label')),
			placeholder: str(el.getAttribute('placeholder')),
			innerText: str(el.innerText),
			textContent: str(el.textContent),
			enclosingLabel: label ? str(label.textContent).trim() : '',
			width: el.offsetWidth || 0,
			height: el.offsetHeight || 0,
			rects: el.getClientRects().length,
		};
	});
	const labels = Array.from(document.querySelectorAll('label[for]')).map((l) => ({
		for: str(l.htmlFor),
		text: str(l.textContent).trim(),
	}));
	return { elements, labels };
}`

// Snapshot enumerates the interactive elements of the current document.
func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	pg := p.page.Context(ctx)

	handles, err := pg.Elements(dom.Selector)
	if err != nil {
		return nil, fmt.Errorf("rodpage: query elements: %w", err)
	}
	res, err := pg.Eval(describeJS, handleObjects(handles)...)
	if err != nil {
		return nil, fmt.Errorf("rodpage: describe elements: %w", err)
	}

	var desc description
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), &desc); err != nil {
		return nil, fmt.Errorf("rodpage: decode description: %w", err)
	}
	return buildSnapshot(desc, handles)
}

// handleObjects returns the remote objects of handles as script arguments.
// go-rod passes them by reference, so the script sees the very same nodes.
func handleObjects(handles rod.Elements) []any {
	args := make([]any, len(handles))
	for i, h := range handles {
		args[i] = h.Object
	}
	return args
}

// buildSnapshot pairs descriptors with the handles they were produced from.
// Elements outside the interactive universe are dropped.
func buildSnapshot(desc description, handles rod.Elements) (*dom.Snapshot, error) {
	if len(desc.Elements) != len(handles) {
		return nil, fmt.Errorf("%w: %d handles, %d descriptions", ErrSnapshotMismatch, len(handles), len(desc.Elements))
	}
	snap := &dom.Snapshot{}
	for i := range handles {
		d := desc.Elements[i]
		kind, ok := dom.KindOf(d.Tag, d.Role)
		if !ok {
			continue
		}
		snap.Elements = append(snap.Elements, &dom.Element{
			Ref:            fmt.Sprintf("e%d", i+1),
			Kind:           kind,
			Tag:            d.Tag,
			ID:             d.ID,
			AriaLabel:      d.AriaLabel,
			Placeholder:    d.Placeholder,
			InnerText:      d.InnerText,
			TextContent:    d.TextContent,
			EnclosingLabel: d.EnclosingLabel,
			Width:          d.Width,
			Height:         d.Height,
			ClientRects:    d.Rects,
			Handle:         handles[i],
		})
	}
	for _, l := range desc.Labels {
		snap.Labels = append(snap.Labels, dom.Label{For: l.For, Text: l.Text})
	}
	return snap, nil
}

const (
	highlightJS = `(ordinal) => {
		this.setAttribute('data-voicenav-highlight', '');
		this.style.outline = '3px solid #ff9800';
		this.style.outlineOffset = '2px';
		if (ordinal > 0) {
			const badge = document.createElement('span');
			badge.className = 'voicenav-badge';
			badge.textContent = String(ordinal);
			const r = this.getBoundingClientRect();
			Object.assign(badge.style, {
				position: 'absolute',
				top: (window.scrollY + r.top - 12) + 'px',
				left: (window.scrollX + r.left - 12) + 'px',
				background: '#ff9800', color: '#000', font: 'bold 14px sans-serif',
				padding: '2px 6px', borderRadius: '10px', zIndex: 2147483647,
				pointerEvents: 'none',
			});
			document.body.appendChild(badge);
		}
	}`

	clearJS = `() => {
		document.querySelectorAll('.voicenav-badge').forEach((b) => b.remove());
		document.querySelectorAll('[data-voicenav-highlight]').forEach((el) => {
			el.removeAttribute('data-voicenav-highlight');
			el.style.outline = '';
			el.style.outlineOffset = '';
		});
	}`

	setValueJS = `(value) => {
		this.value = value;
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`

	scrollJS = `(sign) => window.scrollBy(0, sign * window.innerHeight * 0.7)`

	statusJS = `(text, visible) => {
		let box = document.getElementById('voicenav-status');
		if (!box) {
			box = document.createElement('div');
			box.id = 'voicenav-status';
			Object.assign(box.style, {
				position: 'fixed', bottom: '20px', left: '50%', transform: 'translateX(-50%)',
				background: 'rgba(0,0,0,0.8)', color: '#fff', padding: '10px 20px',
				borderRadius: '8px', font: '16px sans-serif', zIndex: 2147483647,
				transition: 'opacity 0.3s', pointerEvents: 'none',
			});
			document.body.appendChild(box);
		}
		box.textContent = text;
		box.style.opacity = visible ? '1' : '0';
	}`
)

// Highlight outlines every element of hs; positive ordinals get a numbered
// badge.
func (p *Page) Highlight(ctx context.Context, hs []dom.Highlight) error {
	for _, h := range hs {
		el, err := handle(h.Element)
		if err != nil {
			return err
		}
		if _, err := el.Context(ctx).Eval(highlightJS, h.Ordinal); err != nil {
			return fmt.Errorf("rodpage: highlight: %w", err)
		}
	}
	return nil
}

// ClearHighlights removes all outlines and badges.
func (p *Page) ClearHighlights(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(clearJS); err != nil {
		return fmt.Errorf("rodpage: clear highlights: %w", err)
	}
	return nil
}

// Click performs a left click on el.
func (p *Page) Click(ctx context.Context, el *dom.Element) error {
	h, err := handle(el)
	if err != nil {
		return err
	}
	if err := h.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rodpage: click: %w", err)
	}
	return nil
}

// Focus focuses el.
func (p *Page) Focus(ctx context.Context, el *dom.Element) error {
	h, err := handle(el)
	if err != nil {
		return err
	}
	if err := h.Context(ctx).Focus(); err != nil {
		return fmt.Errorf("rodpage: focus: %w", err)
	}
	return nil
}

// Fill focuses el and, for inputs and textareas, sets its value and emits an
// input event.
func (p *Page) Fill(ctx context.Context, el *dom.Element, value string) error {
	h, err := handle(el)
	if err != nil {
		return err
	}
	h = h.Context(ctx)
	if err := h.Focus(); err != nil {
		return fmt.Errorf("rodpage: fill: %w", err)
	}
	if !el.Kind.Editable() {
		return nil
	}
	if _, err := h.Eval(setValueJS, value); err != nil {
		return fmt.Errorf("rodpage: fill: %w", err)
	}
	return nil
}

// Scroll scrolls the window by 70% of its inner height.
func (p *Page) Scroll(ctx context.Context, dir dom.Direction) error {
	sign := 1
	if dir == dom.DirectionUp {
		sign = -1
	}
	if _, err := p.page.Context(ctx).Eval(scrollJS, sign); err != nil {
		return fmt.Errorf("rodpage: scroll: %w", err)
	}
	return nil
}

// ShowStatus renders the status box at the bottom of the page.
func (p *Page) ShowStatus(ctx context.Context, text string, visible bool) error {
	if _, err := p.page.Context(ctx).Eval(statusJS, text, visible); err != nil {
		return fmt.Errorf("rodpage: show status: %w", err)
	}
	return nil
}

// Close closes the tab. A browser launched by Open is shut down with it; a
// browser reached through [Config.ControlURL] keeps running.
func (p *Page) Close() error {
	var err error
	switch {
	case p.closeBrowser != nil:
		err = p.closeBrowser()
	case p.closeTab != nil:
		err = p.closeTab()
	}
	p.closeBrowser, p.closeTab = nil, nil
	p.kill()
	if err != nil {
		return fmt.Errorf("rodpage: close: %w", err)
	}
	return nil
}

func (p *Page) kill() {
	if p.launched != nil {
		p.launched.Kill()
		p.launched = nil
	}
}

func handle(el *dom.Element) (*rod.Element, error) {
	if el == nil {
		return nil, ErrForeignElement
	}
	h, ok := el.Handle.(*rod.Element)
	if !ok || h == nil {
		return nil, fmt.Errorf("%w: %q", ErrForeignElement, el.Ref)
	}
	return h, nil
}
