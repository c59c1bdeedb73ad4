// Package corrector validates decoded plate text against country format rules
// and repairs near-misses with a bounded confusable-substitution search
package corrector

import (
	"sort"
	"strings"

	"anprd/internal/core/alphabet"
	"anprd/internal/core/platepack"
	perr "anprd/internal/platform/errors"

	"golang.org/x/text/unicode/norm"
)

// Match identifies the country format a plate text satisfies
type Match struct {
	CountryCode string
	CountryName string
	FormatName  string
}

// Candidate is a corrected plate text. Substitutions counts the confusable
// swaps applied on top of sanitization and country normalization
type Candidate struct {
	Text          string
	Substitutions int
	CountryCode   string
	FormatName    string
}

// Corrector holds the compiled country rules and the confusable table.
// Immutable; safe for concurrent use
type Corrector struct {
	pack *platepack.Pack
	conf *alphabet.Confusables
}

// New builds a corrector over the given rules. A nil confusable table
// disables substitution search, leaving sanitize-and-validate behavior
func New(pack *platepack.Pack, conf *alphabet.Confusables) (*Corrector, error) {
	if pack == nil {
		return nil, perr.InvalidArgf("corrector: nil pack")
	}
	if conf == nil {
		conf = alphabet.NewConfusables()
	}
	return &Corrector{pack: pack, conf: conf}, nil
}

// Sanitize uppercases, NFC-folds and strips separator characters. It never
// substitutes; it only removes decoration OCR tends to pick up
func Sanitize(text string) string {
	text = norm.NFC.String(strings.ToUpper(text))
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case ' ', '\t', '-', '.', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Validate reports the first format the sanitized text satisfies, checking
// countries in priority order. An empty country list checks every country
func (c *Corrector) Validate(text string, countries []string) (Match, bool, error) {
	sel, err := c.pack.Select(countries)
	if err != nil {
		return Match{}, false, err
	}
	s := Sanitize(text)
	if s == "" {
		return Match{}, false, nil
	}
	for _, country := range sel {
		base := country.Normalize(s)
		if !passesGuards(country, s, base) {
			continue
		}
		if f, ok := country.Match(base); ok {
			return Match{
				CountryCode: country.Code,
				CountryName: country.Name,
				FormatName:  f.Name,
			}, true, nil
		}
	}
	return Match{}, false, nil
}

// Correct finds the cheapest repair of text that satisfies some country
// format, trying substitution budgets 0..maxSubs in order. Within a budget
// tier, countries are tried in priority order and formats in declaration
// order; among equally cheap repairs of one format the lexicographically
// smallest text wins. When no repair fits, the error is ErrNoValidFormat and
// the candidate still carries the sanitized text so callers can log what was
// attempted; the corrector never fabricates a plate
func (c *Corrector) Correct(text string, countries []string, maxSubs int) (Candidate, error) {
	if maxSubs < 0 {
		return Candidate{}, perr.InvalidArgf("corrector: max substitutions %d, want >= 0", maxSubs)
	}
	sel, err := c.pack.Select(countries)
	if err != nil {
		return Candidate{}, err
	}
	s := Sanitize(text)
	if s == "" {
		return Candidate{}, perr.ErrNoValidFormat
	}

	for k := 0; k <= maxSubs; k++ {
		for _, country := range sel {
			base := country.Normalize(s)
			if !passesGuards(country, s, base) {
				continue
			}
			for fi := range country.Formats {
				f := &country.Formats[fi]
				if v, ok := c.cheapestVariant(country, f, []rune(base), k); ok {
					return Candidate{
						Text:          v,
						Substitutions: k,
						CountryCode:   country.Code,
						FormatName:    f.Name,
					}, nil
				}
			}
		}
	}
	return Candidate{Text: s}, perr.ErrNoValidFormat
}

// cheapestVariant returns the lexicographically smallest variant of base with
// exactly k confusable substitutions that matches f and stays inside the
// country charset
func (c *Corrector) cheapestVariant(country *platepack.Country, f *platepack.Format, base []rune, k int) (string, bool) {
	var hits []string
	c.enumerate(base, 0, k, func(v []rune) {
		s := string(v)
		if f.Match(s) && country.AllowedCharset(s) {
			hits = append(hits, s)
		}
	})
	if len(hits) == 0 {
		return "", false
	}
	sort.Strings(hits)
	return hits[0], true
}

// enumerate visits every variant of base with exactly remaining substitutions
// applied at positions >= from. Budgets are small so the walk stays tiny
func (c *Corrector) enumerate(base []rune, from, remaining int, visit func([]rune)) {
	if remaining == 0 {
		visit(base)
		return
	}
	if from >= len(base) {
		return
	}
	// Leave position untouched
	c.enumerate(base, from+1, remaining, visit)
	// Swap it for each alternate, then spend the rest of the budget rightward
	orig := base[from]
	for _, alt := range c.conf.Alternates(orig) {
		base[from] = alt
		c.enumerate(base, from+1, remaining-1, visit)
	}
	base[from] = orig
}

// passesGuards applies the cheap pre-checks that reject junk before any
// regex work: length bounds, stop words, uniform runs and digit counters.
// Stop words are checked both before and after normalization so a Latin
// service marker cannot slip past a Cyrillic correction table
func passesGuards(country *platepack.Country, raw, text string) bool {
	if !country.WithinLength(text) {
		return false
	}
	if country.IsStopWord(raw) || country.IsStopWord(text) {
		return false
	}
	if isUniform(text) {
		return false
	}
	if !country.AllowSequences && isCounter(text) {
		return false
	}
	return true
}

// isUniform reports whether text repeats a single rune
func isUniform(text string) bool {
	var first rune
	for i, r := range text {
		if i == 0 {
			first = r
			continue
		}
		if r != first {
			return false
		}
	}
	return len(text) > 0
}

// isCounter reports whether text is a monotone run of consecutive digits,
// the kind a frame counter or timestamp overlay produces
func isCounter(text string) bool {
	rs := []rune(text)
	if len(rs) < 3 {
		return false
	}
	up, down := true, true
	for i, r := range rs {
		if r < '0' || r > '9' {
			return false
		}
		if i == 0 {
			continue
		}
		if r != rs[i-1]+1 {
			up = false
		}
		if r != rs[i-1]-1 {
			down = false
		}
	}
	return up || down
}
