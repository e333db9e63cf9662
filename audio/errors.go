package audio

import "errors"

var (
	// ErrInsufficientSignal marks recordings with too few usable frames. It
	// degrades scores to neutral values and never aborts a run.
	ErrInsufficientSignal = errors.New("insufficient signal")

	// ErrNumericDegenerate marks empty or zero-variance inputs to a statistic.
	ErrNumericDegenerate = errors.New("numeric degenerate input")
)

// Neutral is the mid-scale value used wherever a sub-score cannot be computed.
const Neutral = 5.0
