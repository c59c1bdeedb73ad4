package module

import (
	"context"
	"testing"
	"time"

	"anprd/internal/core/ctc"
	"anprd/internal/modkit"
	"anprd/internal/platform/config"
	"anprd/internal/platform/testkit"
	"anprd/internal/services/recognition/domain"
)

type nopRecognizer struct{}

func (nopRecognizer) Recognize(_ context.Context, images []domain.Image) ([]ctc.Matrix, error) {
	return make([]ctc.Matrix, len(images)), nil
}

func TestFromConfig_EnvAndDefaults(t *testing.T) {
	t.Setenv("ENGINE_BATCH_SIZE", "16")
	t.Setenv("ENGINE_MAX_WAIT", "250ms")
	t.Setenv("ENGINE_COUNTRIES", "RU,EU")
	t.Setenv("ENGINE_MIN_CONFIDENCE", "0.4")

	got := FromConfig(config.New())
	if got.BatchSize != 16 || got.MaxWait != 250*time.Millisecond {
		t.Fatalf("env overrides ignored: %+v", got)
	}
	if len(got.Countries) != 2 || got.Countries[0] != "RU" || got.Countries[1] != "EU" {
		t.Fatalf("countries = %v", got.Countries)
	}
	if got.MinConfidence != 0.4 {
		t.Fatalf("min confidence = %v", got.MinConfidence)
	}
	// Untouched knobs keep their defaults
	if got.QueueCap != 256 || got.Workers != 1 || got.BeamWidth != 5 || got.MaxSubstitutions != 2 {
		t.Fatalf("defaults wrong: %+v", got)
	}
}

func TestNew_GuardsPorts(t *testing.T) {
	deps := modkit.Deps{Cfg: config.New()}

	testkit.MustPanic(t, func() {
		New(deps, Options{})
	})
	testkit.MustPanic(t, func() {
		New(deps, Options{}, modkit.WithPorts(domain.Ports{}))
	})
}

func TestNew_ExposesSubmitterAndRunner(t *testing.T) {
	deps := modkit.Deps{Cfg: config.New()}

	var m *Module
	testkit.MustNotPanic(t, func() {
		m = New(deps, Options{BatchSize: 2, Workers: 2},
			modkit.WithPorts(domain.Ports{Recognizer: nopRecognizer{}}))
	})
	if m.Name() != "recognition" {
		t.Fatalf("name = %q", m.Name())
	}
	ports, ok := m.Ports().(Ports)
	if !ok {
		t.Fatalf("Ports() returned %T", m.Ports())
	}
	if ports.Submitter == nil || ports.Runner == nil {
		t.Fatalf("ports not wired: %+v", ports)
	}
}
