// Package service implements the recognition scheduler: concurrent submits
// are grouped into bounded batches, run through the recognizer, and fanned
// back out to their callers
package service

import (
	"context"
	"errors"
	"time"

	"anprd/internal/core/alphabet"
	"anprd/internal/core/corrector"
	perr "anprd/internal/platform/errors"
	"anprd/internal/platform/logger"
	"anprd/internal/services/recognition/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config for the recognition scheduler
type Config struct {
	BatchSize        int
	MaxWait          time.Duration // oldest request never waits longer than this before inference
	QueueCap         int
	Workers          int
	BeamWidth        int
	MaxSubstitutions int
	Countries        []string // empty = all configured countries
	MinConfidence    float64
}

// request is one queued submission
type request struct {
	img      domain.Image
	pending  *domain.Pending
	enqueued time.Time
}

// Scheduler implements domain.SubmitterPort and domain.RunnerPort
type Scheduler struct {
	rec   domain.RecognizerPort
	pipe  *pipeline
	queue chan request
	cfg   Config
	log   *logger.Logger
}

// New constructs the scheduler. Zero config fields fall back to safe defaults
func New(rec domain.RecognizerPort, ab *alphabet.Alphabet, corr *corrector.Corrector, cfg Config) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 100 * time.Millisecond
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BeamWidth <= 0 {
		cfg.BeamWidth = 5
	}
	if cfg.MaxSubstitutions < 0 {
		cfg.MaxSubstitutions = 0
	}
	return &Scheduler{
		rec: rec,
		pipe: &pipeline{
			ab:            ab,
			corr:          corr,
			beamWidth:     cfg.BeamWidth,
			maxSubs:       cfg.MaxSubstitutions,
			countries:     cfg.Countries,
			minConfidence: cfg.MinConfidence,
		},
		queue: make(chan request, cfg.QueueCap),
		cfg:   cfg,
		log:   logger.Named("recognition"),
	}
}

// Submit enqueues one plate crop and returns its handle. A full queue fails
// fast with a retryable error instead of blocking the caller
func (s *Scheduler) Submit(ctx context.Context, img domain.Image) (*domain.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "recognition: submit canceled")
	}
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) == 0 {
		return nil, perr.InvalidArgf("recognition: empty image %dx%d", img.Width, img.Height)
	}
	p := domain.NewPending(uuid.NewString())
	select {
	case s.queue <- request{img: img, pending: p, enqueued: time.Now()}:
		return p, nil
	default:
		return nil, perr.QueueFullf("recognition: queue at capacity %d", s.cfg.QueueCap)
	}
}

// Run drives the collector workers until ctx ends, then fails everything
// still queued so no caller is left hanging
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Int("workers", s.cfg.Workers).
		Int("batch_size", s.cfg.BatchSize).
		Dur("max_wait", s.cfg.MaxWait).
		Msg("scheduler started")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error { return s.collect(ctx) })
	}
	err := g.Wait()
	s.drain(err)
	s.log.Info().Msg("scheduler stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// collect pulls one batch at a time and runs it through inference
func (s *Scheduler) collect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case first := <-s.queue:
			s.dispatch(ctx, s.fill(ctx, first))
		}
	}
}

// fill grows a batch around its first request: whatever is already queued is
// taken immediately, then the collector lingers until the first request has
// waited MaxWait or the batch is full
func (s *Scheduler) fill(ctx context.Context, first request) []request {
	batch := make([]request, 1, s.cfg.BatchSize)
	batch[0] = first

	for len(batch) < s.cfg.BatchSize {
		select {
		case r := <-s.queue:
			batch = append(batch, r)
			continue
		default:
		}
		break
	}
	if len(batch) == s.cfg.BatchSize {
		return batch
	}

	timer := time.NewTimer(time.Until(first.enqueued.Add(s.cfg.MaxWait)))
	defer timer.Stop()
	for len(batch) < s.cfg.BatchSize {
		select {
		case r := <-s.queue:
			batch = append(batch, r)
		case <-timer.C:
			return batch
		case <-ctx.Done():
			return batch
		}
	}
	return batch
}

// dispatch runs one batch. A recognizer failure is a whole-batch failure;
// per-image decode or format errors fail only their own request
func (s *Scheduler) dispatch(ctx context.Context, batch []request) {
	images := make([]domain.Image, len(batch))
	for i, r := range batch {
		images[i] = r.img
	}

	start := time.Now()
	matrices, err := s.rec.Recognize(ctx, images)
	if err != nil {
		err = perr.Wrap(err, perr.ErrorCodeRecognizer, "recognition: inference failed")
	} else if len(matrices) != len(batch) {
		err = perr.Recognizerf("recognition: got %d matrices for %d images", len(matrices), len(batch))
	}
	if err != nil {
		s.log.Error().Err(err).Int("batch", len(batch)).Msg("batch failed")
		for _, r := range batch {
			r.pending.Fail(err)
		}
		return
	}

	ok := 0
	for i, r := range batch {
		res, procErr := s.pipe.process(matrices[i])
		if procErr != nil {
			r.pending.Fail(procErr)
			continue
		}
		r.pending.Resolve(res)
		ok++
	}
	s.log.Debug().
		Int("batch", len(batch)).
		Int("resolved", ok).
		Dur("took", time.Since(start)).
		Msg("batch dispatched")
}

// drain fails whatever is still queued after the workers stop
func (s *Scheduler) drain(cause error) {
	if cause == nil {
		cause = context.Canceled
	}
	err := perr.Wrap(cause, perr.ErrorCodeUnknown, "recognition: scheduler shut down")
	for {
		select {
		case r := <-s.queue:
			r.pending.Fail(err)
		default:
			return
		}
	}
}
