// Package ctc implements CTC prefix beam search over a per-timestep class
// probability matrix, producing the top-K collapsed label sequences
package ctc

import (
	"math"
	"sort"

	"anprd/internal/core/alphabet"
	perr "anprd/internal/platform/errors"
)

// Matrix holds linear per-timestep class probabilities, one row per timestep,
// one column per alphabet class (blank at column 0). The decoder owns the
// matrix for the duration of the call and retains no reference afterwards
type Matrix [][]float64

// Decode returns up to beamWidth candidates ordered by descending score.
// Ties break toward the shorter, then lexicographically smaller text.
// A zero-timestep matrix decodes to the empty string with probability 1.
// Degenerate rows (wrong width, non-finite values, zero mass) are a decode
// failure for this matrix only, never a panic
func Decode(m Matrix, beamWidth int, ab *alphabet.Alphabet) ([]Candidate, error) {
	if beamWidth <= 0 {
		return nil, perr.InvalidArgf("ctc: beam width %d, want >= 1", beamWidth)
	}
	if ab == nil {
		return nil, perr.InvalidArgf("ctc: nil alphabet")
	}
	if len(m) == 0 {
		return []Candidate{{Text: "", Score: 0}}, nil
	}

	width := ab.Size()
	logRows := make([][]float64, len(m))
	for t, row := range m {
		lr, err := logRow(row, width, t)
		if err != nil {
			return nil, err
		}
		logRows[t] = lr
	}

	// Beam of visible prefixes; the empty prefix starts with certainty,
	// conventionally parked on the blank half
	beam := map[string]*hypothesis{}
	root := newHypothesis()
	root.endsBlank = 0
	beam[""] = root

	for _, lp := range logRows {
		next := map[string]*hypothesis{}
		grow := func(text string) *hypothesis {
			h, ok := next[text]
			if !ok {
				h = newHypothesis()
				next[text] = h
			}
			return h
		}

		for prefix, h := range beam {
			total := h.total()
			last := lastRune(prefix)

			// Blank keeps the visible sequence and resets repeat suppression
			nh := grow(prefix)
			nh.endsBlank = logSumExp(nh.endsBlank, total+lp[alphabet.Blank])

			for class := 1; class < width; class++ {
				r, _ := ab.Rune(class)
				p := lp[class]
				if math.IsInf(p, -1) {
					continue
				}
				if r == last {
					// Same label again: without a blank in between it
					// collapses into the existing prefix
					nh.endsLabel = logSumExp(nh.endsLabel, h.endsLabel+p)
					// With a blank in between it starts a new emission
					eh := grow(prefix + string(r))
					eh.endsLabel = logSumExp(eh.endsLabel, h.endsBlank+p)
				} else {
					eh := grow(prefix + string(r))
					eh.endsLabel = logSumExp(eh.endsLabel, total+p)
				}
			}
		}

		beam = prune(next, beamWidth)
	}

	out := make([]Candidate, 0, len(beam))
	for text, h := range beam {
		out = append(out, Candidate{Text: text, Score: h.total()})
	}
	sort.Slice(out, func(i, j int) bool {
		return better(out[i].Score, out[i].Text, out[j].Score, out[j].Text)
	})
	if len(out) > beamWidth {
		out = out[:beamWidth]
	}
	return out, nil
}

// logRow validates one probability row and converts it to normalized
// log probabilities
func logRow(row []float64, width, t int) ([]float64, error) {
	if len(row) != width {
		return nil, perr.Decodef("ctc: row %d has %d classes, want %d", t, len(row), width)
	}
	sum := 0.0
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, perr.Decodef("ctc: row %d contains non-finite or negative probability", t)
		}
		sum += v
	}
	if sum <= 0 {
		return nil, perr.Decodef("ctc: row %d has zero probability mass", t)
	}
	out := make([]float64, width)
	for i, v := range row {
		if v == 0 {
			out[i] = math.Inf(-1)
			continue
		}
		out[i] = math.Log(v / sum)
	}
	return out, nil
}

// prune keeps the top beamWidth prefixes by total score
func prune(beam map[string]*hypothesis, beamWidth int) map[string]*hypothesis {
	if len(beam) <= beamWidth {
		return beam
	}
	type ranked struct {
		text  string
		score float64
	}
	rs := make([]ranked, 0, len(beam))
	for text, h := range beam {
		rs = append(rs, ranked{text: text, score: h.total()})
	}
	sort.Slice(rs, func(i, j int) bool {
		return better(rs[i].score, rs[i].text, rs[j].score, rs[j].text)
	})
	kept := make(map[string]*hypothesis, beamWidth)
	for _, r := range rs[:beamWidth] {
		kept[r.text] = beam[r.text]
	}
	return kept
}
