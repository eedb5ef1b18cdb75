package ledger

import "errors"

// Sentinel errors for this package.
var (
	ErrUnsupportedPeriod = errors.New("unsupported period")
	ErrInvalidDate       = errors.New("invalid date")
)
