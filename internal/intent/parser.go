// Package intent turns a transcribed pt-BR utterance into a structured
// [command.Command].
//
// The grammar is a small ordered table of rules; the first rule that matches
// wins. Matching is done on a trimmed, lower-cased copy of the utterance:
//
//  1. scroll: "rolar para cima" / "rola para baixo" (anywhere in the text)
//  2. fill:   "preencher <target> com <value>"
//  3. click:  "clicar em|no|na <target>"
//  4. focus:  "focar em|no|na <target>"
//
// Anything else is unrecognized.
package intent

import (
	"regexp"
	"strings"

	"github.com/MrWong99/voicenav/pkg/command"
)

// fillSeparator divides the fill target from its value. Only the first
// occurrence is a boundary.
const fillSeparator = " com "

var scrollRegex = regexp.MustCompile(`rolar? para (baixo|cima)`)

// rule pairs a grammar rule with its matcher. match receives the normalized
// utterance.
type rule struct {
	// name is a human-readable label for logging.
	name  string
	match func(text string) (command.Command, bool)
}

// Parser parses utterances. It is stateless and safe for concurrent use.
type Parser struct {
	rules []rule
}

// New returns a Parser with the built-in pt-BR grammar.
func New() *Parser {
	return &Parser{rules: defaultRules()}
}

// Normalize trims and lower-cases an utterance.
func Normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}

// Parse returns the command expressed by utterance. The boolean is false when
// no grammar rule matches, including for empty input.
func (p *Parser) Parse(utterance string) (command.Command, bool) {
	cmd, _, ok := p.ParseRule(utterance)
	return cmd, ok
}

// ParseRule is like [Parser.Parse] but also returns the name of the rule that
// matched.
func (p *Parser) ParseRule(utterance string) (command.Command, string, bool) {
	text := Normalize(utterance)
	if text == "" {
		return command.Command{}, "", false
	}
	for _, r := range p.rules {
		if cmd, ok := r.match(text); ok {
			return cmd, r.name, true
		}
	}
	return command.Command{}, "", false
}

func defaultRules() []rule {
	return []rule{
		{name: "scroll", match: matchScroll},
		{name: "fill", match: matchFill},
		{name: "click", match: prefixRule(command.Click, "clicar em", "clicar no", "clicar na")},
		{name: "focus", match: prefixRule(command.Focus, "focar em", "focar no", "focar na")},
	}
}

func matchScroll(text string) (command.Command, bool) {
	m := scrollRegex.FindStringSubmatch(text)
	if m == nil {
		return command.Command{}, false
	}
	dir := command.ScrollDown
	if m[1] == "cima" {
		dir = command.ScrollUp
	}
	return command.Command{Action: command.Scroll, Value: dir}, true
}

// matchFill accepts the fill verb even without a target or value; an empty
// target is rejected later by the navigator.
func matchFill(text string) (command.Command, bool) {
	rest, ok := strings.CutPrefix(text, "preencher")
	if !ok {
		return command.Command{}, false
	}
	target, value, _ := strings.Cut(strings.TrimSpace(rest), fillSeparator)
	return command.Command{
		Action: command.Fill,
		Target: strings.TrimSpace(target),
		Value:  strings.TrimSpace(value),
	}, true
}

// prefixRule matches text starting with any of prefixes; the rest of the text
// becomes the target.
func prefixRule(action command.Action, prefixes ...string) func(string) (command.Command, bool) {
	return func(text string) (command.Command, bool) {
		for _, p := range prefixes {
			if rest, ok := strings.CutPrefix(text, p); ok {
				return command.Command{Action: action, Target: strings.TrimSpace(rest)}, true
			}
		}
		return command.Command{}, false
	}
}
