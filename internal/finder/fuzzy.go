package finder

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// similarity returns the best Jaro-Winkler score between text and query using
// two strategies:
//
//  1. Full-string comparison ("botao enviar" vs "botão enviar").
//  2. Best window comparison: query against every run of len(query tokens)
//     consecutive tokens of text, so a misheard query can still align with
//     one part of a longer label.
func similarity(text, query string) float64 {
	score := matchr.JaroWinkler(text, query, false)

	textTokens := strings.Fields(text)
	queryTokens := strings.Fields(query)
	n := len(queryTokens)
	if n == 0 || n >= len(textTokens) {
		return score
	}
	for i := 0; i+n <= len(textTokens); i++ {
		window := strings.Join(textTokens[i:i+n], " ")
		if s := matchr.JaroWinkler(window, query, false); s > score {
			score = s
		}
	}
	return score
}
