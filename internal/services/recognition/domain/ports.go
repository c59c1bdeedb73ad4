package domain

import (
	"context"

	"anprd/internal/core/ctc"
)

// RecognizerPort turns a batch of plate crops into per-image class
// probability matrices, preserving order and length. An empty batch must
// return an empty slice. Implementations are model adapters (ONNX runner,
// remote inference, replay fixtures)
type RecognizerPort interface {
	Recognize(ctx context.Context, images []Image) ([]ctc.Matrix, error)
}

// SubmitterPort accepts recognition requests for asynchronous batching.
// Submit never blocks on inference; a full queue fails fast
type SubmitterPort interface {
	Submit(ctx context.Context, img Image) (*Pending, error)
}

// RunnerPort drives the batching loop until ctx ends
type RunnerPort interface {
	Run(ctx context.Context) error
}

// Ports are dependencies injected into the recognition module
type Ports struct {
	Recognizer RecognizerPort // required
}
