package module

import (
	"time"

	"anprd/internal/platform/config"
)

// Options holds configuration settings for the recognition module
type Options struct {
	BatchSize        int
	MaxWait          time.Duration
	QueueCap         int
	Workers          int
	BeamWidth        int
	MaxSubstitutions int
	Countries        []string
	MinConfidence    float64
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	ef := cfg.Prefix("ENGINE_")
	return Options{
		BatchSize:        ef.MayInt("BATCH_SIZE", 8),
		MaxWait:          ef.MayDuration("MAX_WAIT", 100*time.Millisecond),
		QueueCap:         ef.MayInt("QUEUE_CAP", 256),
		Workers:          ef.MayInt("WORKERS", 1),
		BeamWidth:        ef.MayInt("BEAM_WIDTH", 5),
		MaxSubstitutions: ef.MayInt("MAX_SUBSTITUTIONS", 2),
		Countries:        ef.MayCSV("COUNTRIES", nil),
		MinConfidence:    ef.MayFloat64("MIN_CONFIDENCE", 0),
	}
}
