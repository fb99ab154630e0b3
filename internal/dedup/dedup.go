// Package dedup suppresses text already emitted by the previous chunk
// where two consecutive chunks overlap, per spec.md §4.7.
package dedup

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const maxOverlapTokens = 40
const minSurvivingTokens = 2

var foldCaser = cases.Fold()

// Deduplicator tracks the text emitted from the previous chunk so the
// next call to Dedup can strip the part already written.
type Deduplicator struct {
	prevTokens []string
}

func New() *Deduplicator {
	return &Deduplicator{}
}

// Dedup strips the longest suffix of the previous chunk's text that is
// a prefix of current, up to maxOverlapTokens tokens. It returns the
// remaining text and whether the segment should be suppressed
// entirely (fewer than minSurvivingTokens tokens remain). On success
// (not suppressed) the deduplicator's state is advanced to current.
func (d *Deduplicator) Dedup(current string) (remaining string, suppress bool) {
	curTokens := tokenise(current)

	overlap := longestSuffixPrefixMatch(d.prevTokens, curTokens, maxOverlapTokens)
	survivors := curTokens[overlap:]

	if len(survivors) < minSurvivingTokens {
		return "", true
	}
	d.prevTokens = curTokens
	return strings.Join(survivors, " "), false
}

// Reset clears dedup state, used when starting a new recording session.
func (d *Deduplicator) Reset() {
	d.prevTokens = nil
}

func tokenise(text string) []string {
	normalised := norm.NFKC.String(text)
	normalised = foldCaser.String(normalised)
	return strings.Fields(normalised)
}

// longestSuffixPrefixMatch finds the length of the longest suffix of
// prev that equals a prefix of cur, capped at maxLen tokens.
func longestSuffixPrefixMatch(prev, cur []string, maxLen int) int {
	limit := maxLen
	if len(prev) < limit {
		limit = len(prev)
	}
	if len(cur) < limit {
		limit = len(cur)
	}

	for length := limit; length > 0; length-- {
		suffix := prev[len(prev)-length:]
		prefix := cur[:length]
		if equalTokens(suffix, prefix) {
			return length
		}
	}
	return 0
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
