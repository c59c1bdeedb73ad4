// Package domain defines the core types and interfaces for the recognition service
package domain

import (
	"context"
	"sync"

	perr "anprd/internal/platform/errors"
)

// Image is a cropped plate region handed to the recognizer. Pixels is an
// opaque payload; the scheduler never inspects it
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// Result is the final plate reading for one request
type Result struct {
	RequestID     string
	Text          string
	Confidence    float64
	CountryCode   string
	FormatName    string
	Substitutions int
}

// outcome pairs a result with its terminal error; exactly one of the two
// halves is meaningful
type outcome struct {
	res Result
	err error
}

// Pending is the caller's handle for one submitted request. It resolves
// exactly once; an abandoned handle never blocks the scheduler
type Pending struct {
	id   string
	ch   chan outcome
	once sync.Once
}

// NewPending builds a handle for the given request id
func NewPending(id string) *Pending {
	return &Pending{id: id, ch: make(chan outcome, 1)}
}

// ID returns the request id the scheduler assigned
func (p *Pending) ID() string { return p.id }

// Resolve delivers the result. Later calls to Resolve or Fail are no-ops
func (p *Pending) Resolve(res Result) {
	p.once.Do(func() {
		res.RequestID = p.id
		p.ch <- outcome{res: res}
	})
}

// Fail delivers a terminal error. Later calls to Resolve or Fail are no-ops
func (p *Pending) Fail(err error) {
	p.once.Do(func() {
		if err == nil {
			err = perr.Internalf("recognition: request %s failed with nil error", p.id)
		}
		p.ch <- outcome{err: err}
	})
}

// Wait blocks until the request resolves or ctx ends. The result stays
// buffered, so Wait may be retried after a context timeout
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case o := <-p.ch:
		// Re-buffer so repeated Wait calls observe the same outcome
		p.ch <- o
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, perr.Wrap(ctx.Err(), perr.ErrorCodeUnknown, "recognition: wait canceled")
	}
}
