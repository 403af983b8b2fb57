// Package ambiguity holds the numeric-choice sub-dialog used when several page
// elements tie for the best score.
//
// A [Resolver] is a two-state machine:
//
//	Idle ──Begin──▶ AwaitingChoice ──Resolve (valid or not)──▶ Idle
//	                      │
//	                      └──────────Reset──────────▶ Idle
//
// While awaiting a choice, the next utterance is interpreted only as a
// 1-based candidate number.
package ambiguity

import (
	"strings"
	"sync"

	"github.com/MrWong99/voicenav/pkg/command"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// State is the resolver's dialog state.
type State int

const (
	// Idle means no disambiguation is in progress.
	Idle State = iota

	// AwaitingChoice means candidates are highlighted and the next reply is a
	// choice.
	AwaitingChoice
)

// String returns a lower-case name for s.
func (s State) String() string {
	if s == AwaitingChoice {
		return "awaiting-choice"
	}
	return "idle"
}

// numberWords maps the spoken pt-BR numerals accepted as choices.
var numberWords = map[string]int{
	"um":     1,
	"dois":   2,
	"três":   3,
	"quatro": 4,
	"cinco":  5,
}

// Resolver is the per-session ambiguity context. All methods are safe for
// concurrent use.
type Resolver struct {
	mu         sync.Mutex
	state      State
	candidates []*dom.Element
	pending    *command.Command
}

// New returns an idle Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Begin enters AwaitingChoice with candidates (kept in the given order) and
// cmd as the pending command. Any previous context is replaced. The returned
// highlights number the candidates from 1.
func (r *Resolver) Begin(cmd command.Command, candidates []*dom.Element) []dom.Highlight {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd.Element = nil
	r.state = AwaitingChoice
	r.candidates = append([]*dom.Element(nil), candidates...)
	r.pending = &cmd

	hs := make([]dom.Highlight, len(candidates))
	for i, el := range candidates {
		hs[i] = dom.Highlight{Element: el, Ordinal: i + 1}
	}
	return hs
}

// Resolve interprets reply as a candidate number. On a valid choice it returns
// the pending command resolved to the chosen element. The resolver is Idle
// afterwards in every case, including when it was not awaiting a choice.
func (r *Resolver) Resolve(reply string) (command.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer r.reset()

	k := ParseChoice(reply)
	if r.state != AwaitingChoice || r.pending == nil || k <= 0 || k > len(r.candidates) {
		return command.Command{}, false
	}
	return r.pending.WithElement(r.candidates[k-1]), true
}

// Reset returns to Idle unconditionally.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Resolver) reset() {
	r.state = Idle
	r.candidates = nil
	r.pending = nil
}

// State returns the current dialog state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active reports whether the resolver is awaiting a choice.
func (r *Resolver) Active() bool {
	return r.State() == AwaitingChoice
}

// Candidates returns a copy of the candidates awaiting a choice, or nil when
// Idle.
func (r *Resolver) Candidates() []*dom.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != AwaitingChoice {
		return nil
	}
	return append([]*dom.Element(nil), r.candidates...)
}

// Pending returns the command awaiting a choice.
func (r *Resolver) Pending() (command.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return command.Command{}, false
	}
	return *r.pending, true
}

// ParseChoice converts a spoken choice into a number. The whole reply is first
// looked up among the pt-BR number words um through cinco; otherwise the
// leading decimal digits are parsed, after optional whitespace and an optional
// sign. It returns 0 when reply holds no number.
func ParseChoice(reply string) int {
	text := strings.ToLower(strings.TrimSpace(reply))
	if n, ok := numberWords[text]; ok {
		return n
	}

	neg := false
	if text != "" && (text[0] == '+' || text[0] == '-') {
		neg = text[0] == '-'
		text = text[1:]
	}

	n, digits := 0, 0
	for _, c := range text {
		if c < '0' || c > '9' {
			break
		}
		// Saturate; no candidate list is this long.
		if n < 1_000_000 {
			n = n*10 + int(c-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
