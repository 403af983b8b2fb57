package navigator

import (
	"errors"

	"github.com/MrWong99/voicenav/pkg/command"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// User-facing outcome errors returned by [Outcome.Err]. None of them is fatal
// to the session.
var (
	// ErrParseFailure: the utterance matched no grammar rule.
	ErrParseFailure = errors.New("navigator: command not recognized")

	// ErrMissingTarget: the action needs a target and none was spoken.
	ErrMissingTarget = errors.New("navigator: target not specified")

	// ErrNoMatch: no visible element matched the target.
	ErrNoMatch = errors.New("navigator: no matching element")

	// ErrAmbiguousMatch: several elements tied for the best score; the
	// session now awaits a numeric choice.
	ErrAmbiguousMatch = errors.New("navigator: ambiguous match")

	// ErrInvalidChoice: the disambiguation reply was not an in-range number.
	ErrInvalidChoice = errors.New("navigator: invalid choice")

	// ErrPageUnavailable: the page could not be read.
	ErrPageUnavailable = errors.New("navigator: page unavailable")
)

// OutcomeKind classifies the result of one utterance.
type OutcomeKind int

const (
	// OutcomeDispatched: a command was handed to the action layer.
	OutcomeDispatched OutcomeKind = iota
	OutcomeUnrecognized
	OutcomeMissingTarget
	OutcomeNotFound
	OutcomeAmbiguous
	OutcomeInvalidChoice

	// OutcomePageError: the page snapshot failed; Handle also returns the
	// cause.
	OutcomePageError
)

// String returns the kebab-case name used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeUnrecognized:
		return "unrecognized"
	case OutcomeMissingTarget:
		return "missing-target"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeInvalidChoice:
		return "invalid-choice"
	case OutcomePageError:
		return "page-error"
	}
	return "unknown"
}

// Outcome is the result of handling one utterance.
type Outcome struct {
	Kind OutcomeKind

	// Command is the parsed command. For OutcomeDispatched it is the
	// finalized command that was executed.
	Command command.Command

	// Target is the spoken target for OutcomeNotFound, OutcomeAmbiguous and
	// OutcomePageError.
	Target string

	// Raw is the normalized utterance.
	Raw string

	// Candidates are the tied elements awaiting a choice (OutcomeAmbiguous).
	Candidates []*dom.Element
}

// Err maps the outcome to its sentinel error; nil when dispatched.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeUnrecognized:
		return ErrParseFailure
	case OutcomeMissingTarget:
		return ErrMissingTarget
	case OutcomeNotFound:
		return ErrNoMatch
	case OutcomeAmbiguous:
		return ErrAmbiguousMatch
	case OutcomeInvalidChoice:
		return ErrInvalidChoice
	case OutcomePageError:
		return ErrPageUnavailable
	}
	return nil
}

// Summary is the wire form of an [Outcome], shared by the websocket gateway
// and the MCP server.
type Summary struct {
	Outcome    string   `json:"outcome"`
	Raw        string   `json:"raw"`
	Action     string   `json:"action,omitempty"`
	Target     string   `json:"target,omitempty"`
	Value      string   `json:"value,omitempty"`
	Element    string   `json:"element,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Summary returns the wire form of o. Elements are identified by their
// snapshot refs.
func (o Outcome) Summary() Summary {
	s := Summary{
		Outcome: o.Kind.String(),
		Raw:     o.Raw,
		Target:  o.Command.Target,
		Value:   o.Command.Value,
	}
	if o.Command.Action != command.Unknown {
		s.Action = o.Command.Action.String()
	}
	if o.Command.Element != nil {
		s.Element = o.Command.Element.Ref
	}
	for _, el := range o.Candidates {
		s.Candidates = append(s.Candidates, el.Ref)
	}
	if err := o.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}
