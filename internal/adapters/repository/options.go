package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxListLimit caps how many runs ListRuns returns.
func WithMaxListLimit(limit int) Option {
	return func(s *SQLStore) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}
