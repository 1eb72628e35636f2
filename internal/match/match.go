// Package match implements the fuzzy title selector.
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/cases"
)

// Threshold is the minimum similarity for a fuzzy title hit.
const Threshold = 0.60

var fold = cases.Fold()

// Normalize case-folds s and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(fold.String(s)), " ")
}

// Ratio returns 2*M/T where M is the number of runes the two strings share
// in a minimal diff and T the total rune count.
func Ratio(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	shared := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			shared += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(shared) / float64(total)
}

// Title reports whether candidate is selected by needle: a case-insensitive
// substring in either direction, or a similarity at or above Threshold.
func Title(needle, candidate string) bool {
	n, c := Normalize(needle), Normalize(candidate)
	if n == "" || c == "" {
		return false
	}
	if strings.Contains(c, n) || strings.Contains(n, c) {
		return true
	}
	return Ratio(n, c) >= Threshold
}

// Best returns the index of the candidate most similar to needle among those
// selected by Title, or -1.
func Best(needle string, candidates []string) int {
	best, bestScore := -1, -1.0
	for i, c := range candidates {
		if !Title(needle, c) {
			continue
		}
		score := Ratio(needle, c)
		if strings.EqualFold(Normalize(needle), Normalize(c)) {
			score = 2
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
