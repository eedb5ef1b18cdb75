package config

import (
	"errors"
)

// Sentinel errors. Load wraps file and env problems in ErrLoadConfig and
// rejected values in ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
