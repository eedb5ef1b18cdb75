package tabular

import "errors"

// Sentinel errors for this package.
var (
	ErrEmptyInput = errors.New("empty input")
	ErrMalformed  = errors.New("malformed input")
)
