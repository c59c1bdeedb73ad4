package service

import (
	"errors"

	"anprd/internal/core/alphabet"
	"anprd/internal/core/corrector"
	"anprd/internal/core/ctc"
	perr "anprd/internal/platform/errors"
	"anprd/internal/services/recognition/domain"
)

// pipeline turns one probability matrix into a validated plate reading:
// beam decode, confidence gate, then format correction over the ranked
// candidates until one fits
type pipeline struct {
	ab            *alphabet.Alphabet
	corr          *corrector.Corrector
	beamWidth     int
	maxSubs       int
	countries     []string
	minConfidence float64
}

func (p *pipeline) process(m ctc.Matrix) (domain.Result, error) {
	cands, err := ctc.Decode(m, p.beamWidth, p.ab)
	if err != nil {
		return domain.Result{}, err
	}
	for _, cand := range cands {
		conf := cand.Confidence()
		if conf < p.minConfidence {
			// Candidates are ranked; everything after this one is weaker
			break
		}
		got, err := p.corr.Correct(cand.Text, p.countries, p.maxSubs)
		if err != nil {
			if errors.Is(err, perr.ErrNoValidFormat) {
				continue
			}
			return domain.Result{}, err
		}
		return domain.Result{
			Text:          got.Text,
			Confidence:    conf,
			CountryCode:   got.CountryCode,
			FormatName:    got.FormatName,
			Substitutions: got.Substitutions,
		}, nil
	}
	return domain.Result{}, perr.ErrNoValidFormat
}
