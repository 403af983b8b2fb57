// Package status models the user-facing status line of a voice navigation
// session: the pt-BR texts shown for each pipeline event and the
// "last message wins" [Board] that displays them.
package status

import (
	"fmt"
	"time"

	"github.com/MrWong99/voicenav/pkg/command"
)

// Kind identifies a status event.
type Kind string

const (
	// KindUnrecognized: the utterance matched no grammar rule.
	KindUnrecognized Kind = "unrecognized"

	// KindInvalidTarget: a target-requiring command had an empty target.
	KindInvalidTarget Kind = "invalid-target"

	// KindNotFound: no visible element matched the target.
	KindNotFound Kind = "not-found"

	// KindAmbiguous: several elements tied; a numeric choice is expected.
	KindAmbiguous Kind = "ambiguous"

	// KindInvalidChoice: the disambiguation reply was not a valid number.
	KindInvalidChoice Kind = "invalid-choice"

	KindListening       Kind = "listening"
	KindHeard           Kind = "heard"
	KindExecuting       Kind = "executing"
	KindRecognizerError Kind = "recognizer-error"
	KindNoSpeech        Kind = "no-speech"
	KindUnsupported     Kind = "unsupported"

	// KindPageError: the page could not be read, e.g. the tab crashed or
	// the page circuit is open.
	KindPageError Kind = "page-error"

	// KindIdle hides the status line.
	KindIdle Kind = "idle"
)

// IsError reports whether k is shown as an error and dismissed after the error
// duration.
func (k Kind) IsError() bool {
	switch k {
	case KindUnrecognized, KindInvalidTarget, KindNotFound, KindInvalidChoice,
		KindRecognizerError, KindNoSpeech, KindPageError:
		return true
	}
	return false
}

// Event is one status notification.
type Event struct {
	Kind Kind

	// Target is the spoken description for KindNotFound.
	Target string

	// Count is the number of tied candidates for KindAmbiguous.
	Count int

	// Raw is the verbatim utterance for KindHeard and KindInvalidChoice, and
	// the recognizer error code for KindRecognizerError.
	Raw string

	// Action is the dispatched action for KindExecuting.
	Action command.Action
}

// Text renders ev as the pt-BR text shown to the user. KindIdle and unknown
// kinds render as the empty string.
func Text(ev Event) string {
	switch ev.Kind {
	case KindUnrecognized:
		return "Comando não reconhecido."
	case KindInvalidTarget:
		return "Comando inválido: target não especificado."
	case KindNotFound:
		return fmt.Sprintf(`Não encontrei: "%s"`, ev.Target)
	case KindAmbiguous:
		return fmt.Sprintf("Encontrei %d resultados. Diga o número.", ev.Count)
	case KindInvalidChoice:
		return fmt.Sprintf(`"%s"? Escolha inválida.`, ev.Raw)
	case KindListening:
		return "Ouvindo..."
	case KindHeard:
		return fmt.Sprintf(`Você disse: "%s"`, ev.Raw)
	case KindExecuting:
		return "Executando: " + ev.Action.Verb()
	case KindRecognizerError:
		return "Erro: " + ev.Raw
	case KindNoSpeech:
		return "Não ouvi nada."
	case KindUnsupported:
		return "API de Voz não suportada."
	case KindPageError:
		return "Erro ao ler a página."
	}
	return ""
}

// Durations controls how long each class of message stays visible. A zero
// duration keeps the message until it is replaced.
type Durations struct {
	// Error applies to every kind for which [Kind.IsError] is true.
	Error time.Duration

	// Executing applies to KindExecuting.
	Executing time.Duration

	// Unsupported applies to KindUnsupported.
	Unsupported time.Duration
}

// DefaultDurations returns 3s for errors, 2s while executing and 5s for the
// unsupported notice. Everything else is sticky.
func DefaultDurations() Durations {
	return Durations{
		Error:       3 * time.Second,
		Executing:   2 * time.Second,
		Unsupported: 5 * time.Second,
	}
}

// For returns the display duration of kind k.
func (d Durations) For(k Kind) time.Duration {
	switch {
	case k.IsError():
		return d.Error
	case k == KindExecuting:
		return d.Executing
	case k == KindUnsupported:
		return d.Unsupported
	}
	return 0
}
