// Package command defines the structured command produced from a voice
// utterance and handed to the action layer.
package command

import "github.com/MrWong99/voicenav/pkg/dom"

// Action is the closed set of command kinds.
type Action int

const (
	// Unknown is the zero value; it is never dispatched.
	Unknown Action = iota
	Click
	Focus
	Fill
	Scroll
)

// Actions lists every dispatchable action, in declaration order.
var Actions = []Action{Click, Focus, Fill, Scroll}

// String returns the lower-case English name of a.
func (a Action) String() string {
	switch a {
	case Click:
		return "click"
	case Focus:
		return "focus"
	case Fill:
		return "fill"
	case Scroll:
		return "scroll"
	}
	return "unknown"
}

// Verb returns the pt-BR verb the action is spoken as.
func (a Action) Verb() string {
	switch a {
	case Click:
		return "clicar"
	case Focus:
		return "focar"
	case Fill:
		return "preencher"
	case Scroll:
		return "rolar"
	}
	return "desconhecido"
}

// NeedsTarget reports whether commands of this action must resolve a page
// element before dispatch.
func (a Action) NeedsTarget() bool {
	return a == Click || a == Focus || a == Fill
}

// Scroll values.
const (
	ScrollUp   = "up"
	ScrollDown = "down"
)

// Command is a parsed voice command.
type Command struct {
	// Action is the command kind.
	Action Action

	// Target is the free-text description of the element, lower-cased as
	// spoken. Empty for scroll.
	Target string

	// Value is the fill text or, for scroll, [ScrollUp] or [ScrollDown].
	Value string

	// Element is the resolved target element; nil until resolution.
	Element *dom.Element
}

// Ready reports whether c may be dispatched: scroll commands always, commands
// needing a target only once Element is resolved.
func (c Command) Ready() bool {
	switch {
	case c.Action == Scroll:
		return true
	case c.Action.NeedsTarget():
		return c.Element != nil
	}
	return false
}

// WithElement returns a copy of c resolved to el.
func (c Command) WithElement(el *dom.Element) Command {
	c.Element = el
	return c
}
