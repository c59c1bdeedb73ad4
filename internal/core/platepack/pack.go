// Package platepack loads and compiles country plate format rules from the
// embedded countries.yaml (or an injected snapshot). It prepares compiled
// regexes and correction tables for the validator
package platepack

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	perr "anprd/internal/platform/errors"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var embedded []byte

type rawCorrection struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`
}

type rawCorrections struct {
	CommonMistakes  []rawCorrection `yaml:"common_mistakes" validate:"dive"`
	LatinToCyrillic []rawCorrection `yaml:"latin_to_cyrillic" validate:"dive"`
}

type rawFormat struct {
	Name        string `yaml:"name" validate:"required"`
	Regex       string `yaml:"regex" validate:"required"`
	Example     string `yaml:"example"`
	Description string `yaml:"description"`
}

type rawCharset struct {
	Letters string `yaml:"letters" validate:"required"`
	Digits  string `yaml:"digits"`
}

type rawCountry struct {
	Name           string         `yaml:"name" validate:"required"`
	Code           string         `yaml:"code" validate:"required,alpha,uppercase,min=2,max=3"`
	Priority       int            `yaml:"priority" validate:"gte=0"`
	Charset        rawCharset     `yaml:"valid_characters"`
	MinLength      int            `yaml:"min_length" validate:"gte=0"`
	MaxLength      int            `yaml:"max_length" validate:"gte=0"`
	StopWords      []string       `yaml:"stop_words"`
	Corrections    rawCorrections `yaml:"corrections"`
	Formats        []rawFormat    `yaml:"license_plate_formats" validate:"required,min=1,dive"`
	AllowSequences bool           `yaml:"allow_sequences"`
}

type rawPack struct {
	Countries []rawCountry `yaml:"countries" validate:"required,min=1,dive"`
}

// Format is one compiled plate pattern with its metadata
type Format struct {
	Name        string
	Example     string
	Description string
	re          *regexp.Regexp
}

// Match reports whether text matches this format
func (f *Format) Match(text string) bool { return f.re.MatchString(text) }

// Pattern returns the source regex
func (f *Format) Pattern() string { return f.re.String() }

// Country holds the compiled rules of one country. Immutable after Load;
// safe for concurrent readers
type Country struct {
	Name           string
	Code           string
	Priority       int
	Formats        []Format
	MinLength      int
	MaxLength      int
	AllowSequences bool

	allowed   map[rune]struct{}
	replacer  *strings.Replacer
	stopWords map[string]struct{}
}

// Normalize applies the country's directional correction maps to text.
// Confusable-search substitutions are a separate, bounded concern
func (c *Country) Normalize(text string) string {
	if c.replacer == nil {
		return text
	}
	return c.replacer.Replace(text)
}

// AllowedCharset reports whether every rune of text is a valid plate
// character for this country
func (c *Country) AllowedCharset(text string) bool {
	for _, r := range text {
		if _, ok := c.allowed[r]; !ok {
			return false
		}
	}
	return true
}

// IsStopWord reports whether text is a configured service value
func (c *Country) IsStopWord(text string) bool {
	_, ok := c.stopWords[text]
	return ok
}

// WithinLength reports whether len(text) in runes fits the configured bounds
// (zero bound = unbounded)
func (c *Country) WithinLength(text string) bool {
	n := len([]rune(text))
	if c.MinLength > 0 && n < c.MinLength {
		return false
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return false
	}
	return true
}

// Match returns the first format matching text, in declaration order
func (c *Country) Match(text string) (*Format, bool) {
	for i := range c.Formats {
		if c.Formats[i].Match(text) {
			return &c.Formats[i], true
		}
	}
	return nil, false
}

// Pack is an immutable snapshot of all country rules. Replace the whole
// value to reload; never mutated in place
type Pack struct {
	countries []*Country
	byCode    map[string]*Country
}

// Load compiles the embedded countries.yaml
func Load() (*Pack, error) {
	return LoadBytes(embedded)
}

// LoadBytes compiles an injected configuration snapshot. Any structural or
// regex error is a configuration error, fatal at startup by policy
func LoadBytes(b []byte) (*Pack, error) {
	var rp rawPack
	if err := yaml.Unmarshal(b, &rp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "platepack: parse countries config")
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(rp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "platepack: invalid countries config")
	}

	p := &Pack{byCode: make(map[string]*Country, len(rp.Countries))}
	for _, rc := range rp.Countries {
		c, err := compileCountry(rc)
		if err != nil {
			return nil, err
		}
		if _, dup := p.byCode[c.Code]; dup {
			return nil, perr.Configf("platepack: duplicate country code %s", c.Code)
		}
		p.byCode[c.Code] = c
		p.countries = append(p.countries, c)
	}

	// Priority order; declaration order breaks ties so reloads stay stable
	sort.SliceStable(p.countries, func(i, j int) bool {
		return p.countries[i].Priority < p.countries[j].Priority
	})
	return p, nil
}

func compileCountry(rc rawCountry) (*Country, error) {
	if rc.MinLength > 0 && rc.MaxLength > 0 && rc.MinLength > rc.MaxLength {
		return nil, perr.Configf("platepack: %s: min_length %d > max_length %d", rc.Code, rc.MinLength, rc.MaxLength)
	}

	c := &Country{
		Name:           rc.Name,
		Code:           rc.Code,
		Priority:       rc.Priority,
		MinLength:      rc.MinLength,
		MaxLength:      rc.MaxLength,
		AllowSequences: rc.AllowSequences,
		allowed:        make(map[rune]struct{}, 40),
		stopWords:      make(map[string]struct{}, len(rc.StopWords)),
	}

	digits := rc.Charset.Digits
	if digits == "" {
		digits = "0123456789"
	}
	for _, r := range norm.NFC.String(rc.Charset.Letters + digits) {
		c.allowed[r] = struct{}{}
	}

	for _, w := range rc.StopWords {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			c.stopWords[w] = struct{}{}
		}
	}

	// Directional corrections, applied in declaration order
	pairs := make([]string, 0, 2*(len(rc.Corrections.CommonMistakes)+len(rc.Corrections.LatinToCyrillic)))
	for _, cor := range append(rc.Corrections.CommonMistakes, rc.Corrections.LatinToCyrillic...) {
		from := norm.NFC.String(strings.ToUpper(cor.From))
		to := norm.NFC.String(strings.ToUpper(cor.To))
		pairs = append(pairs, from, to)
	}
	if len(pairs) > 0 {
		c.replacer = strings.NewReplacer(pairs...)
	}

	for _, rf := range rc.Formats {
		re, err := regexp.Compile(rf.Regex)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "platepack: %s/%s: compile %q", rc.Code, rf.Name, rf.Regex)
		}
		c.Formats = append(c.Formats, Format{
			Name:        rf.Name,
			Example:     rf.Example,
			Description: rf.Description,
			re:          re,
		})
	}
	return c, nil
}

// Countries returns all countries in priority order.
// The returned slice must not be mutated
func (p *Pack) Countries() []*Country { return p.countries }

// Country returns the country with the given code
func (p *Pack) Country(code string) (*Country, bool) {
	c, ok := p.byCode[strings.ToUpper(code)]
	return c, ok
}

// Select returns the named countries in pack priority order; an empty list
// selects every country. Unknown codes are an input-constraint error
func (p *Pack) Select(codes []string) ([]*Country, error) {
	if len(codes) == 0 {
		return p.countries, nil
	}
	want := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if _, ok := p.byCode[code]; !ok {
			return nil, perr.InvalidArgf("platepack: unknown country %q", code)
		}
		want[code] = struct{}{}
	}
	out := make([]*Country, 0, len(want))
	for _, c := range p.countries {
		if _, ok := want[c.Code]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}
