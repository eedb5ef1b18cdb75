// Package ledgergen produces deterministic synthetic two-year ledgers for
// demos and end-to-end checks of the watchlist pipeline.
package ledgergen

import (
	"fmt"
	"time"
)

// Default generator settings.
const (
	defaultAccounts         = 40
	defaultSeed             = 1
	defaultPostingsPerMonth = 4
	defaultWorkers          = 4
	defaultTimeout          = 30 * time.Second
)

// Config holds configuration for a generated ledger pair.
type Config struct {
	Accounts         int    // number of accounts
	Seed             uint64 // same seed, same ledgers
	Year             int    // current year; the prior year is Year-1
	PostingsPerMonth int    // postings per active month
	Workers          int    // concurrent account generators
}

// DefaultConfig returns a mid-sized book for the year before now.
func DefaultConfig() Config {
	return Config{
		Accounts:         defaultAccounts,
		Seed:             defaultSeed,
		Year:             time.Now().Year() - 1,
		PostingsPerMonth: defaultPostingsPerMonth,
		Workers:          defaultWorkers,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.Accounts < 1:
		return fmt.Errorf("%w: accounts must be positive, got %d", ErrInvalidConfig, c.Accounts)
	case c.PostingsPerMonth < 1:
		return fmt.Errorf("%w: postings per month must be positive, got %d", ErrInvalidConfig, c.PostingsPerMonth)
	case c.Year < 1971 || c.Year > 9999:
		return fmt.Errorf("%w: year %d out of range", ErrInvalidConfig, c.Year)
	}
	return nil
}
