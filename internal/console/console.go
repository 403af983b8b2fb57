// Package console is a terminal stand-in for the speech recognizer: every
// line read from the input is one final utterance of the current listening
// session, and status line changes are rendered to the output with lipgloss.
//
// Lines starting with ':' are console commands:
//
//	:ouvir   start a new listening session
//	:parar   stop listening
//	:sair    leave the console
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/voicenav/internal/navigator"
	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/internal/status"
)

// Console commands.
const (
	CmdListen = ":ouvir"
	CmdStop   = ":parar"
	CmdQuit   = ":sair"
)

// Session is the navigator surface the console drives.
type Session interface {
	Handle(ctx context.Context, utterance string) (navigator.Outcome, error)
	SetListening(ctx context.Context, active bool) error
}

// Styles groups the lipgloss styles used to render status lines.
type Styles struct {
	Error     lipgloss.Style
	Listening lipgloss.Style
	Pending   lipgloss.Style
	Info      lipgloss.Style
	Muted     lipgloss.Style
}

// NewStyles returns the default palette rendered through r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Error:     r.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		Listening: r.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Pending:   r.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true),
		Info:      r.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("#6b7280")).Italic(true),
	}
}

// Option configures a [Console].
type Option func(*Console)

// WithStyles overrides the default styles.
func WithStyles(s Styles) Option {
	return func(c *Console) {
		c.styles = s
	}
}

// Console reads utterances from in and renders status to out.
type Console struct {
	session Session
	in      io.Reader
	styles  Styles

	mu        sync.Mutex
	out       io.Writer
	listening bool
}

// New returns a Console. Colors are chosen for out's terminal profile, so
// rendering to a pipe or buffer produces plain text.
func New(session Session, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		session: session,
		in:      in,
		out:     out,
		styles:  NewStyles(lipgloss.NewRenderer(out)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Present renders one status message. It is meant to be subscribed to a
// [status.Board]; hidden messages print nothing.
func (c *Console) Present(m status.Message) {
	if !m.Visible || m.Text == "" {
		return
	}
	c.println(c.style(m.Event.Kind).Render(m.Text))
}

func (c *Console) style(k status.Kind) lipgloss.Style {
	switch {
	case k.IsError():
		return c.styles.Error
	case k == status.KindListening:
		return c.styles.Listening
	case k == status.KindAmbiguous:
		return c.styles.Pending
	}
	return c.styles.Info
}

// Run starts a listening session and processes input lines until EOF,
// [CmdQuit] or ctx cancellation. A read blocked on in is abandoned, not
// interrupted, when ctx ends.
func (c *Console) Run(ctx context.Context) error {
	if err := c.setListening(ctx, true); err != nil {
		return err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("console: read input: %w", err)
			}
			return nil
		case line := <-lines:
			quit, err := c.handleLine(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handleLine processes one input line. It reports whether the console should
// exit.
func (c *Console) handleLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case CmdQuit:
		return true, nil
	case CmdListen:
		return false, c.setListening(ctx, true)
	case CmdStop:
		return false, c.setListening(ctx, false)
	}

	if strings.HasPrefix(line, ":") {
		c.println(c.styles.Muted.Render(fmt.Sprintf("comando desconhecido %q (use %s, %s ou %s)", line, CmdListen, CmdStop, CmdQuit)))
		return false, nil
	}

	c.mu.Lock()
	listening := c.listening
	c.mu.Unlock()
	if !listening {
		c.println(c.styles.Muted.Render("não estou ouvindo; use " + CmdListen))
		return false, nil
	}

	out, err := c.session.Handle(ctx, line)
	if err != nil {
		// Page failures end the utterance, not the console.
		observe.Logger(ctx).Warn("console: handle utterance", "err", err)
		c.println(c.styles.Error.Render("falha: " + err.Error()))
		return false, nil
	}
	if out.Kind == navigator.OutcomeAmbiguous {
		for i, el := range out.Candidates {
			c.println(c.styles.Pending.Render(fmt.Sprintf("  %d. %s", i+1, describe(el.Text(), el.Ref))))
		}
	}
	return false, nil
}

func (c *Console) setListening(ctx context.Context, active bool) error {
	if err := c.session.SetListening(ctx, active); err != nil {
		return fmt.Errorf("console: set listening: %w", err)
	}
	c.mu.Lock()
	c.listening = active
	c.mu.Unlock()
	return nil
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func describe(text, ref string) string {
	if text == "" {
		return "[" + ref + "]"
	}
	return text + " [" + ref + "]"
}
