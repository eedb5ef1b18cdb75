package service

import "errors"

var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrNoStore is returned by history operations when no store is configured.
	ErrNoStore = errors.New("run history is not configured")
)
