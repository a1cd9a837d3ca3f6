package pipeline

import "errors"

// Error kinds of one pipeline run. Input and configuration errors are
// not retryable without a fix; sampling is retryable with a new seed;
// estimation errors abort the run so results stay reproducible.
var (
	// ErrInput indicates an empty or degenerate particle set, or a
	// particle with non-positive mass or non-finite coordinates.
	// Fatal, reported before any output is produced.
	ErrInput = errors.New("pipeline: invalid input")

	// ErrConfig indicates an unusable pipeline configuration (missing
	// IMF or track, unloaded band, bad kernel or combiner tag).
	ErrConfig = errors.New("pipeline: invalid configuration")
)
