// Command anprd-platecheck validates or corrects plate strings against the
// embedded country format rules. Each argument is one raw plate reading
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"anprd/internal/core/alphabet"
	"anprd/internal/core/corrector"
	"anprd/internal/core/platepack"
	"anprd/internal/platform/logger"
)

type line struct {
	Input         string `json:"input"`
	Valid         bool   `json:"valid"`
	Text          string `json:"text,omitempty"`
	Country       string `json:"country,omitempty"`
	Format        string `json:"format,omitempty"`
	Substitutions int    `json:"substitutions,omitempty"`
	Error         string `json:"error,omitempty"`
}

func main() {
	l := logger.Get()

	var (
		countriesCSV = flag.String("countries", "", "CSV of country codes (empty = all)")
		subs         = flag.Int("subs", 2, "max confusable substitutions")
		validateOnly = flag.Bool("validate", false, "check formats without substitutions")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: anprd-platecheck [flags] PLATE ...")
	}

	var countries []string
	if *countriesCSV != "" {
		countries = strings.Split(*countriesCSV, ",")
	}

	pack, err := platepack.Load()
	if err != nil {
		l.Fatal().Err(err).Msg("load country rules")
	}
	corr, err := corrector.New(pack, alphabet.DefaultConfusables())
	if err != nil {
		l.Fatal().Err(err).Msg("build corrector")
	}

	enc := json.NewEncoder(os.Stdout)
	invalid := 0
	for _, arg := range flag.Args() {
		out := line{Input: arg}
		if *validateOnly {
			m, ok, err := corr.Validate(arg, countries)
			switch {
			case err != nil:
				out.Error = err.Error()
			case ok:
				out.Valid = true
				out.Text = corrector.Sanitize(arg)
				out.Country = m.CountryCode
				out.Format = m.FormatName
			}
		} else {
			got, err := corr.Correct(arg, countries, *subs)
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Valid = true
				out.Text = got.Text
				out.Country = got.CountryCode
				out.Format = got.FormatName
				out.Substitutions = got.Substitutions
			}
		}
		if !out.Valid {
			invalid++
		}
		_ = enc.Encode(out)
	}
	if invalid > 0 {
		os.Exit(1)
	}
}
