package ctc

import (
	"math"
	"unicode/utf8"
)

// Candidate is one ranked decode result. Score is the log probability mass of
// every alignment path that collapses to Text
type Candidate struct {
	Text  string
	Score float64
}

// Confidence maps the log score into [0,1]
func (c Candidate) Confidence() float64 {
	p := math.Exp(c.Score)
	if p > 1 {
		return 1
	}
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	return p
}

// hypothesis tracks the two probability halves of one visible prefix:
// mass of paths ending in blank and mass ending in the prefix's last symbol.
// The split is what makes the CTC collapse rule decidable at the next timestep
type hypothesis struct {
	endsBlank float64 // log prob of paths ending in blank
	endsLabel float64 // log prob of paths ending in the last emitted label
}

func newHypothesis() *hypothesis {
	return &hypothesis{endsBlank: math.Inf(-1), endsLabel: math.Inf(-1)}
}

// total is the full log probability of the prefix
func (h *hypothesis) total() float64 {
	return logSumExp(h.endsBlank, h.endsLabel)
}

// logSumExp combines two log-domain probabilities
func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// lastRune returns the final rune of s, or 0 for the empty prefix
func lastRune(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// better orders prefixes by descending score with the deterministic
// tie-breaks: shorter text first, then lexicographic
func better(scoreA float64, textA string, scoreB float64, textB string) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	if len(textA) != len(textB) {
		return len(textA) < len(textB)
	}
	return textA < textB
}
