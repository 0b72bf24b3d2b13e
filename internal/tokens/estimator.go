// Package tokens provides two-mode token counting for budget decisions.
//
// The fast mode is a character-ratio heuristic (roughly 4 characters per
// token for English text) and is cheap enough to call repeatedly inside
// truncation loops. The accurate mode walks the text and counts word and
// punctuation units, which tracks BPE tokenizers closely enough to report
// final usage numbers. Truncation decisions never depend on the accurate
// mode, so allocation stays O(length) no matter how many passes it takes.
package tokens

import (
	"unicode"
)

// charsPerToken is the heuristic ratio for the fast estimator.
// Conservative for English prose: overestimating triggers truncation
// slightly early rather than risking overflow at the provider.
const charsPerToken = 4

// Estimator counts tokens in either fast or accurate mode.
// The zero value is ready to use.
type Estimator struct{}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate returns the token count for text. Empty text is always 0 in
// both modes. When accurate is false, the count is the 4-chars-per-token
// heuristic rounded up; when true, word and punctuation units are counted
// individually.
func (e *Estimator) Estimate(text string, accurate bool) int {
	if text == "" {
		return 0
	}
	if !accurate {
		return (len(text) + charsPerToken - 1) / charsPerToken
	}
	return countUnits(text)
}

// countUnits counts word-ish tokenizer units: runs of letters/digits
// count as one unit per 4 runes (long identifiers split under BPE),
// and each punctuation or symbol rune counts as its own unit.
func countUnits(text string) int {
	count := 0
	runLen := 0
	flush := func() {
		if runLen > 0 {
			count += (runLen + 3) / 4
			runLen = 0
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			runLen++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			count++
		}
	}
	flush()
	return count
}
