// Package module implements the recognition module
package module

import (
	"anprd/internal/core/alphabet"
	"anprd/internal/core/corrector"
	"anprd/internal/core/platepack"
	"anprd/internal/modkit"
	"anprd/internal/services/recognition/domain"
	"anprd/internal/services/recognition/service"
)

// Ports exposed by the recognition module
type Ports struct {
	Submitter domain.SubmitterPort
	Runner    domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new recognition module
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("recognition"),
	}, opts...)...)

	// Basic guardrails against incorrect wiring
	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("recognition module: expected WithPorts(recognition/domain.Ports)")
	}
	if ports.Recognizer == nil {
		panic("recognition module: Ports missing Recognizer")
	}

	// Merge config + overrides
	cfg := FromConfig(deps.Cfg)
	if overrides.BatchSize != 0 {
		cfg.BatchSize = overrides.BatchSize
	}
	if overrides.MaxWait != 0 {
		cfg.MaxWait = overrides.MaxWait
	}
	if overrides.QueueCap != 0 {
		cfg.QueueCap = overrides.QueueCap
	}
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.BeamWidth != 0 {
		cfg.BeamWidth = overrides.BeamWidth
	}
	if overrides.MaxSubstitutions != 0 {
		cfg.MaxSubstitutions = overrides.MaxSubstitutions
	}
	if len(overrides.Countries) != 0 {
		cfg.Countries = overrides.Countries
	}
	if overrides.MinConfidence != 0 {
		cfg.MinConfidence = overrides.MinConfidence
	}

	// Shared format rules and confusable table for the pipeline
	pack, err := platepack.Load()
	if err != nil {
		panic(err)
	}
	corr, err := corrector.New(pack, alphabet.DefaultConfusables())
	if err != nil {
		panic(err)
	}

	sched := service.New(
		ports.Recognizer,
		alphabet.MustNew(alphabet.Default),
		corr,
		service.Config{
			BatchSize:        cfg.BatchSize,
			MaxWait:          cfg.MaxWait,
			QueueCap:         cfg.QueueCap,
			Workers:          cfg.Workers,
			BeamWidth:        cfg.BeamWidth,
			MaxSubstitutions: cfg.MaxSubstitutions,
			Countries:        cfg.Countries,
			MinConfidence:    cfg.MinConfidence,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{
		Submitter: sched,
		Runner:    sched,
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "recognition" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
