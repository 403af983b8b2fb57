// Package finder ranks the interactive elements of a page snapshot against a
// natural-language description.
//
// Each candidate is scored by folding a fixed table of text sources over it:
//
//	associated <label> text   weight 10
//	aria-label                weight 9
//	element text              weight 8
//	placeholder               weight 7
//
// A source whose normalized text equals the normalized description adds its
// full weight; a source that merely contains the description adds half. Scores
// from all sources accumulate. Invisible elements never score.
package finder

import (
	"slices"
	"strings"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// Scored pairs an element with its accumulated score.
type Scored struct {
	Element *dom.Element
	Score   float64
}

// source is one weighted text extractor. labels is the snapshot's label-for
// lookup, shared across candidates.
type source struct {
	name    string
	weight  float64
	extract func(el *dom.Element, labels map[string]string) string
}

// sources is ordered by weight, highest first.
var sources = []source{
	{name: "label", weight: 10, extract: labelText},
	{name: "aria-label", weight: 9, extract: func(el *dom.Element, _ map[string]string) string { return el.AriaLabel }},
	{name: "text", weight: 8, extract: func(el *dom.Element, _ map[string]string) string { return el.Text() }},
	{name: "placeholder", weight: 7, extract: func(el *dom.Element, _ map[string]string) string { return el.Placeholder }},
}

// Option configures a [Finder].
type Option func(*Finder)

// WithFuzzyThreshold enables a Jaro-Winkler fallback pass used only when the
// strict pass finds nothing. Sources at or above threshold add a quarter of
// their weight. A threshold <= 0 disables the fallback (the default).
func WithFuzzyThreshold(threshold float64) Option {
	return func(f *Finder) {
		f.fuzzyThreshold = threshold
	}
}

// Finder scores snapshot elements. It is read-only after construction and
// safe for concurrent use.
type Finder struct {
	fuzzyThreshold float64
}

// New returns a Finder configured with opts.
func New(opts ...Option) *Finder {
	f := &Finder{}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FuzzyThreshold returns the configured fallback threshold (0 when disabled).
func (f *Finder) FuzzyThreshold() float64 {
	return f.fuzzyThreshold
}

// Find returns the visible interactive elements of snap matching description,
// ordered by descending score. Elements with equal scores keep document order.
// Zero-score elements are omitted. An empty description yields nil without
// scanning the snapshot.
func (f *Finder) Find(snap *dom.Snapshot, description string) []Scored {
	query := strings.ToLower(strings.TrimSpace(description))
	if query == "" || snap == nil {
		return nil
	}

	labels := snap.LabelFor()
	results := scan(snap, labels, func(text string, weight float64) float64 {
		switch {
		case text == query:
			return weight
		case strings.Contains(text, query):
			return weight / 2
		}
		return 0
	})

	if len(results) == 0 && f.fuzzyThreshold > 0 {
		results = scan(snap, labels, func(text string, weight float64) float64 {
			if similarity(text, query) >= f.fuzzyThreshold {
				return weight / 4
			}
			return 0
		})
	}

	slices.SortStableFunc(results, func(a, b Scored) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return results
}

// scan folds the source table over every visible interactive element, using
// match to score each normalized source text.
func scan(snap *dom.Snapshot, labels map[string]string, match func(text string, weight float64) float64) []Scored {
	var results []Scored
	for _, el := range snap.Elements {
		if el == nil || !el.Kind.IsInteractive() || !el.Visible() {
			continue
		}
		var score float64
		for _, s := range sources {
			text := s.extract(el, labels)
			if text == "" {
				continue
			}
			score += match(normalizeSource(text), s.weight)
		}
		if score > 0 {
			results = append(results, Scored{Element: el, Score: score})
		}
	}
	return results
}

// BestSet returns the leading results sharing the maximum score. results must
// be ordered as returned by [Finder.Find].
func BestSet(results []Scored) []*dom.Element {
	if len(results) == 0 {
		return nil
	}
	best := results[0].Score
	var out []*dom.Element
	for _, r := range results {
		if r.Score != best {
			break
		}
		out = append(out, r.Element)
	}
	return out
}

// labelText returns the label associated with el: a label[for] pointing at its
// id when one exists (even if its text is empty), otherwise the closest
// enclosing label.
func labelText(el *dom.Element, labels map[string]string) string {
	if el.ID != "" {
		if text, ok := labels[el.ID]; ok {
			return text
		}
	}
	return el.EnclosingLabel
}

// normalizeSource lower-cases text, trims it and collapses whitespace runs.
func normalizeSource(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
