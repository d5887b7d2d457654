package pipeline

import "errors"

var (
	// ErrPipelineUnavailable means the stage graph could not be built. It is fatal.
	ErrPipelineUnavailable = errors.New("pipeline unavailable")
	// ErrInvalidGraph wraps every graph validation failure.
	ErrInvalidGraph = errors.New("invalid pipeline graph")
	// ErrStagePanic is returned when a stage panics.
	ErrStagePanic = errors.New("stage panicked")
	// ErrNoOutput is returned when neither the graph nor the fallback run produced a result.
	ErrNoOutput = errors.New("pipeline produced no output")
)
