package ledgergen

import "errors"

var (
	// ErrInvalidConfig is returned for unusable generator settings.
	ErrInvalidConfig = errors.New("invalid generator config")

	// ErrSubmit is returned when the service rejects a generated run.
	ErrSubmit = errors.New("submit failed")
)
