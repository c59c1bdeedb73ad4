package alphabet

// Confusables is a symmetric table of visually confusable characters used to
// generate correction candidates. Each configured pair is inserted in both
// directions; alternates keep insertion order for deterministic search.
// Immutable after construction
type Confusables struct {
	alt map[rune][]rune
}

// NewConfusables builds a table from symmetric pairs
func NewConfusables(pairs ...[2]rune) *Confusables {
	c := &Confusables{alt: make(map[rune][]rune, len(pairs)*2)}
	for _, p := range pairs {
		c.add(p[0], p[1])
		c.add(p[1], p[0])
	}
	return c
}

func (c *Confusables) add(from, to rune) {
	for _, r := range c.alt[from] {
		if r == to {
			return
		}
	}
	c.alt[from] = append(c.alt[from], to)
}

// Alternates returns the confusable substitutes for r in insertion order.
// The returned slice must not be mutated
func (c *Confusables) Alternates(r rune) []rune {
	return c.alt[r]
}

// Has reports whether r has at least one alternate
func (c *Confusables) Has(r rune) bool {
	return len(c.alt[r]) > 0
}

// DefaultConfusables covers the digit/letter look-alikes of the default
// Cyrillic plate alphabet
func DefaultConfusables() *Confusables {
	return NewConfusables(
		[2]rune{'0', 'О'},
		[2]rune{'8', 'В'},
		[2]rune{'1', 'Т'},
	)
}
