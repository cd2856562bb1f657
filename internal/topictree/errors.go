package topictree

import "errors"

var (
	ErrModelRequired = errors.New("model must be specified")
	ErrInvalidShape  = errors.New("tree degree and depth must be non-negative")
	ErrRootRequired  = errors.New("root prompt is required")

	// errInsufficient marks an attempt that parsed fewer subtopics than asked for.
	errInsufficient = errors.New("insufficient valid subtopics generated")
)
