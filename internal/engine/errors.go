package engine

import "errors"

var (
	ErrNumStepsRequired = errors.New("num_steps must be specified")
	ErrModelRequired    = errors.New("model must be a non-empty string")
	ErrInvalidBatchSize = errors.New("batch_size must be positive")

	// ErrExceedsTreePaths is wrapped with the requested and available counts.
	ErrExceedsTreePaths = errors.New("exceeds available tree paths")

	ErrNotEnoughExamples = errors.New("not enough example samples for the requested demonstrations")
)
