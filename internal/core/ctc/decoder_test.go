package ctc

import (
	"math"
	"testing"

	"anprd/internal/core/alphabet"
	perr "anprd/internal/platform/errors"
)

// oneHot builds a row with all mass on the given class
func oneHot(width, class int) []float64 {
	row := make([]float64, width)
	row[class] = 1
	return row
}

func TestDecode_EmptyMatrixYieldsEmptyString(t *testing.T) {
	ab := alphabet.MustNew("AB")
	got, err := Decode(Matrix{}, 3, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].Text != "" || got[0].Score != 0 {
		t.Fatalf("empty matrix = %+v, want [{\"\" 0}]", got)
	}
	if got[0].Confidence() != 1 {
		t.Fatalf("empty decode confidence = %v, want 1", got[0].Confidence())
	}
}

func TestDecode_BeamWidthValidation(t *testing.T) {
	ab := alphabet.MustNew("AB")
	for _, w := range []int{0, -1} {
		if _, err := Decode(Matrix{oneHot(3, 1)}, w, ab); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("beamWidth=%d: err = %v, want invalid argument", w, err)
		}
	}
}

func TestDecode_DegenerateRowsFailCleanly(t *testing.T) {
	ab := alphabet.MustNew("AB")
	cases := map[string]Matrix{
		"zero mass":   {{0, 0, 0}},
		"nan":         {{math.NaN(), 0.5, 0.5}},
		"inf":         {{math.Inf(1), 0, 0}},
		"negative":    {{-0.5, 1, 0.5}},
		"wrong width": {{0.5, 0.5}},
	}
	for name, m := range cases {
		if _, err := Decode(m, 2, ab); !perr.IsCode(err, perr.ErrorCodeDecode) {
			t.Fatalf("%s: err = %v, want decode failure", name, err)
		}
	}
}

func TestDecode_CollapsesRepeatsWithoutBlank(t *testing.T) {
	ab := alphabet.MustNew("AB")
	// A A with no blank is a single emission
	got, err := Decode(Matrix{oneHot(3, 1), oneHot(3, 1)}, 2, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got[0].Text != "A" {
		t.Fatalf("top = %q, want A", got[0].Text)
	}
	if math.Abs(got[0].Score) > 1e-12 {
		t.Fatalf("certain path score = %v, want 0", got[0].Score)
	}
}

func TestDecode_BlankSplitsRepeats(t *testing.T) {
	ab := alphabet.MustNew("AB")
	// A blank A is two emissions of the same label
	got, err := Decode(Matrix{oneHot(3, 1), oneHot(3, 0), oneHot(3, 1)}, 2, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got[0].Text != "AA" {
		t.Fatalf("top = %q, want AA", got[0].Text)
	}
}

func TestDecode_SpecExamplePath(t *testing.T) {
	ab := alphabet.MustNew(alphabet.Default)
	w := ab.Size()
	class := func(r rune) int {
		i, ok := ab.Index(r)
		if !ok {
			t.Fatalf("symbol %q not in alphabet", r)
		}
		return i
	}
	// Raw path А - А 1 1 1 - В В 7 7 (- = blank) collapses to АА1В7
	path := []int{
		class('А'), alphabet.Blank, class('А'),
		class('1'), class('1'), class('1'),
		alphabet.Blank,
		class('В'), class('В'),
		class('7'), class('7'),
	}
	m := make(Matrix, len(path))
	for t2, c := range path {
		m[t2] = oneHot(w, c)
	}
	got, err := Decode(m, 3, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got[0].Text != "АА1В7" {
		t.Fatalf("top = %q, want АА1В7", got[0].Text)
	}
}

func TestDecode_MergesPathsWithLogSumExp(t *testing.T) {
	ab := alphabet.MustNew("A")
	// Uniform 2x2: P("A") = AA + A- + -A = 0.75, P("") = 0.25
	m := Matrix{{0.5, 0.5}, {0.5, 0.5}}
	got, err := Decode(m, 2, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got[0].Text != "A" || got[1].Text != "" {
		t.Fatalf("order = [%q %q], want [A \"\"]", got[0].Text, got[1].Text)
	}
	if math.Abs(got[0].Score-math.Log(0.75)) > 1e-9 {
		t.Fatalf("P(A) score = %v, want ln 0.75", got[0].Score)
	}
	if math.Abs(got[1].Score-math.Log(0.25)) > 1e-9 {
		t.Fatalf("P(\"\") score = %v, want ln 0.25", got[1].Score)
	}
}

func TestDecode_OrderingAndWidthBound(t *testing.T) {
	ab := alphabet.MustNew("AB")
	m := Matrix{
		{0.2, 0.5, 0.3},
		{0.3, 0.3, 0.4},
		{0.5, 0.2, 0.3},
	}
	for _, w := range []int{1, 2, 4, 16} {
		got, err := Decode(m, w, ab)
		if err != nil {
			t.Fatalf("Decode width %d: %v", w, err)
		}
		if len(got) > w {
			t.Fatalf("width %d: got %d candidates", w, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Fatalf("width %d: scores increase at %d: %v", w, i, got)
			}
		}
		for _, c := range got {
			for _, r := range c.Text {
				if !ab.Contains(r) {
					t.Fatalf("decoded text %q contains non-alphabet rune %q", c.Text, r)
				}
			}
		}
	}
}

func TestDecode_DeterministicTieBreaks(t *testing.T) {
	ab := alphabet.MustNew("AB")
	// One timestep, A and B equally likely; lexicographic order decides
	m := Matrix{{0, 0.5, 0.5}}
	got, err := Decode(m, 2, ab)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got[0].Text != "A" || got[1].Text != "B" {
		t.Fatalf("tie order = [%q %q], want [A B]", got[0].Text, got[1].Text)
	}
	// Re-run to confirm stability across map iteration order
	for i := 0; i < 20; i++ {
		again, _ := Decode(m, 2, ab)
		if again[0].Text != got[0].Text || again[1].Text != got[1].Text {
			t.Fatalf("tie break not deterministic on run %d", i)
		}
	}
}

func TestCandidate_ConfidenceClamps(t *testing.T) {
	if c := (Candidate{Score: 1}); c.Confidence() != 1 {
		t.Fatalf("positive log score must clamp to 1")
	}
	if c := (Candidate{Score: math.Inf(-1)}); c.Confidence() != 0 {
		t.Fatalf("-inf score must clamp to 0")
	}
}
