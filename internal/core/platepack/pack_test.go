package platepack

import (
	"testing"

	perr "anprd/internal/platform/errors"
)

func TestLoad_EmbeddedPackCompiles(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cs := p.Countries()
	if len(cs) < 2 {
		t.Fatalf("embedded pack has %d countries, want >= 2", len(cs))
	}
	for i := 1; i < len(cs); i++ {
		if cs[i-1].Priority > cs[i].Priority {
			t.Fatalf("countries out of priority order: %s(%d) before %s(%d)",
				cs[i-1].Code, cs[i-1].Priority, cs[i].Code, cs[i].Priority)
		}
	}
	ru, ok := p.Country("ru")
	if !ok {
		t.Fatal("RU missing from embedded pack")
	}
	if len(ru.Formats) == 0 {
		t.Fatal("RU has no formats")
	}
}

func TestLoadBytes_RejectsBrokenConfigs(t *testing.T) {
	cases := map[string]string{
		"not yaml": "countries: [",
		"no countries": `
countries: []
`,
		"missing code": `
countries:
  - name: Nowhere
    priority: 1
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^A$" }
`,
		"lowercase code": `
countries:
  - name: Nowhere
    code: xx
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^A$" }
`,
		"no formats": `
countries:
  - name: Nowhere
    code: XX
    valid_characters: { letters: "AB" }
    license_plate_formats: []
`,
		"bad regex": `
countries:
  - name: Nowhere
    code: XX
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^[A$" }
`,
		"length bounds inverted": `
countries:
  - name: Nowhere
    code: XX
    min_length: 9
    max_length: 4
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^A$" }
`,
		"duplicate code": `
countries:
  - name: One
    code: XX
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^A$" }
  - name: Two
    code: XX
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: x, regex: "^B$" }
`,
	}
	for name, doc := range cases {
		if _, err := LoadBytes([]byte(doc)); !perr.IsCode(err, perr.ErrorCodeConfig) {
			t.Fatalf("%s: err = %v, want config failure", name, err)
		}
	}
}

func TestCountry_MatchFirstWins(t *testing.T) {
	p, err := LoadBytes([]byte(`
countries:
  - name: Overlap
    code: XX
    valid_characters: { letters: "AB" }
    license_plate_formats:
      - { name: broad, regex: "^[AB][0-9]+$" }
      - { name: narrow, regex: "^A[0-9]{3}$" }
`))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	c, _ := p.Country("XX")
	f, ok := c.Match("A123")
	if !ok || f.Name != "broad" {
		t.Fatalf("Match = %v %v, want broad (declaration order)", f, ok)
	}
	if _, ok := c.Match("C123"); ok {
		t.Fatal("non-member text must not match")
	}
}

func TestCountry_NormalizeAppliesDirectionalCorrections(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ru, _ := p.Country("RU")
	// Latin homoglyphs map onto their Cyrillic counterparts
	if got := ru.Normalize("A123BC77"); got != "А123ВС77" {
		t.Fatalf("Normalize = %q, want Cyrillic А123ВС77", got)
	}
	// Already normalized text passes through unchanged
	if got := ru.Normalize("А123ВС77"); got != "А123ВС77" {
		t.Fatalf("Normalize changed clean text to %q", got)
	}
}

func TestCountry_CharsetAndGuards(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ru, _ := p.Country("RU")
	if !ru.AllowedCharset("А123ВС77") {
		t.Fatal("valid RU plate rejected by charset")
	}
	if ru.AllowedCharset("A123BC77") {
		t.Fatal("Latin letters are outside the RU charset")
	}
	if !ru.IsStopWord("TEST") || ru.IsStopWord("А123ВС77") {
		t.Fatal("stop word lookup wrong")
	}
	if ru.WithinLength("А12345") {
		t.Fatal("6 runes is below the RU minimum")
	}
	if !ru.WithinLength("А123ВС777") {
		t.Fatal("9 runes is within the RU bounds")
	}
}

func TestPack_Select(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all, err := p.Select(nil)
	if err != nil || len(all) != len(p.Countries()) {
		t.Fatalf("empty selection = %d countries, err %v", len(all), err)
	}
	one, err := p.Select([]string{" ru "})
	if err != nil || len(one) != 1 || one[0].Code != "RU" {
		t.Fatalf("Select(ru) = %v, %v", one, err)
	}
	if _, err := p.Select([]string{"ZZ"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown code err = %v, want invalid argument", err)
	}
}
