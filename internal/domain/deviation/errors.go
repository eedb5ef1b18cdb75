package deviation

import "errors"

// Sentinel errors for this package.
var (
	ErrInvalidConfig  = errors.New("invalid deviation config")
	ErrMissingColumns = errors.New("missing required columns")
)
