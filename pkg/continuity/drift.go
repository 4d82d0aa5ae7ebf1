package continuity

import "strings"

// DriftValidator decides whether an AI rewrite drifted out of the
// source language, i.e. was accidentally translated. Drift is evidence
// the output is untrustworthy for this call, not an error.
type DriftValidator interface {
	Drifted(output string) bool
}

// EnglishWordRatioValidator flags output where too many tokens are
// common English words. This is the historical heuristic for
// Vietnamese-language sources; it is a known approximation and is kept
// behind the DriftValidator interface so deployments with other
// language pairs can swap it out.
type EnglishWordRatioValidator struct {
	// Threshold is the token ratio above which output counts as
	// drifted. Zero means the default of 0.2.
	Threshold float64
}

var commonEnglishWords = map[string]bool{
	"the": true, "be": true, "to": true, "of": true, "and": true,
	"a": true, "in": true, "that": true, "have": true, "it": true,
	"for": true, "not": true, "on": true, "with": true, "he": true,
	"as": true, "you": true, "do": true, "at": true, "this": true,
	"but": true, "his": true, "by": true, "from": true, "they": true,
	"we": true, "say": true, "her": true, "she": true, "or": true,
	"an": true, "will": true, "my": true, "one": true, "all": true,
	"would": true, "there": true, "their": true, "what": true,
	"which": true, "when": true, "can": true, "was": true, "were": true,
	"is": true, "are": true, "been": true, "has": true, "had": true,
}

func (v EnglishWordRatioValidator) Drifted(output string) bool {
	threshold := v.Threshold
	if threshold == 0 {
		threshold = 0.2
	}

	tokens := strings.Fields(strings.ToLower(output))
	if len(tokens) < 5 {
		return false
	}

	matches := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, `.,!?:;"'()[]{}`)
		if commonEnglishWords[tok] {
			matches++
		}
	}
	return float64(matches)/float64(len(tokens)) > threshold
}
