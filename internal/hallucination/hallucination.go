// Package hallucination drops STT utterances that are known Whisper
// artefacts or too low-confidence to trust, per spec.md §4.5.
package hallucination

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const noSpeechThreshold = 0.6

var blacklist = []*regexp.Regexp{
	regexp.MustCompile(`^[\s\-_.]*$`),
	regexp.MustCompile(`^\[?(music|applause|silence|keyboard|typing|clicking)\]?$`),
	regexp.MustCompile(`^\(?(music|applause|silence|keyboard|typing|clicking)\)?$`),
}

var foldCaser = cases.Fold()

// Utterance is the minimal shape this package needs from
// stt.Utterance, kept narrow so the filter has no dependency on the
// STT package.
type Utterance struct {
	Text         string
	NoSpeechProb float32
}

// Keep reports whether an utterance should survive into the pipeline.
// soleContentInChunk is true when this is the only utterance produced
// for the chunk, needed for the exact-phrase "thank you." rule.
func Keep(u Utterance, soleContentInChunk bool) bool {
	if u.NoSpeechProb >= noSpeechThreshold {
		return false
	}

	normalised := normalise(u.Text)

	for _, re := range blacklist {
		if re.MatchString(normalised) {
			return false
		}
	}

	if soleContentInChunk && normalised == "thank you." {
		return false
	}

	return true
}

// normalise applies NFKC normalisation then casefolds and trims, the
// comparison basis the blacklist regexes are written against.
func normalise(text string) string {
	nfkc := norm.NFKC.String(text)
	return strings.TrimSpace(foldCaser.String(nfkc))
}
