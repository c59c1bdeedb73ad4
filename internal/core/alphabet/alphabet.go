// Package alphabet defines the class-index to character mapping shared by the
// CTC decoder and the plate corrector. Index 0 is always the CTC blank
package alphabet

import (
	"strings"

	perr "anprd/internal/platform/errors"

	"golang.org/x/text/unicode/norm"
)

// Blank is the reserved class index for the CTC blank symbol
const Blank = 0

// Alphabet is an immutable ordered symbol table. Symbols occupy indices 1..N;
// index 0 is the blank and has no character. Safe for concurrent readers
type Alphabet struct {
	runes []rune
	index map[rune]int
}

// Default is the symbol set of the reference Cyrillic plate recognizer:
// digits plus the twelve letters shared by the Cyrillic and Latin scripts
const Default = "0123456789АВЕКМНОРСТУХ"

// New builds an Alphabet from the given symbols. Symbols are NFC-normalized;
// empty input or duplicate symbols are an input-constraint error
func New(symbols string) (*Alphabet, error) {
	folded := norm.NFC.String(symbols)
	if folded == "" {
		return nil, perr.InvalidArgf("alphabet: empty symbol set")
	}
	rs := []rune(folded)
	a := &Alphabet{
		runes: make([]rune, 0, len(rs)+1),
		index: make(map[rune]int, len(rs)),
	}
	a.runes = append(a.runes, 0) // placeholder for blank at index 0
	for _, r := range rs {
		if _, dup := a.index[r]; dup {
			return nil, perr.InvalidArgf("alphabet: duplicate symbol %q", r)
		}
		a.index[r] = len(a.runes)
		a.runes = append(a.runes, r)
	}
	return a, nil
}

// MustNew is New that panics on error; for static default tables
func MustNew(symbols string) *Alphabet {
	a, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the class count including the blank
func (a *Alphabet) Size() int { return len(a.runes) }

// Rune returns the character for class i; ok=false for the blank or
// out-of-range indices
func (a *Alphabet) Rune(i int) (rune, bool) {
	if i <= Blank || i >= len(a.runes) {
		return 0, false
	}
	return a.runes[i], true
}

// Index returns the class for r; ok=false if r is not in the alphabet
func (a *Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[r]
	return i, ok
}

// Contains reports whether r is a non-blank symbol of the alphabet
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// String renders the non-blank symbols in class order
func (a *Alphabet) String() string {
	var b strings.Builder
	b.Grow(len(a.runes))
	for _, r := range a.runes[1:] {
		b.WriteRune(r)
	}
	return b.String()
}
