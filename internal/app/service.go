// Package service wires the ledger comparison pipeline, the deviation engine
// and run history behind one API used by the CLI and the HTTP server.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/worker"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/logger"
)

// Service runs analyses and watchlists and keeps their history.
type Service struct {
	mu sync.RWMutex

	// Core components
	pool  *worker.Pool
	store repository.Store

	// Configuration
	workerCount int
	metrics     []string
	location    *time.Location
	deviation   deviation.Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets how many accounts are compared concurrently.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the ledger columns that are aggregated and compared.
func WithMetrics(columns []string) Option {
	return func(s *Service) {
		if len(columns) > 0 {
			s.metrics = append([]string(nil), columns...)
		}
	}
}

// WithLocation sets the zone naive ledger dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithStore enables run history. Without a store, runs are computed but
// not persisted and ListRuns/GetRun return ErrNoStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithDeviationConfig sets the default watchlist configuration.
func WithDeviationConfig(cfg deviation.Config) Option {
	return func(s *Service) {
		s.deviation = cfg.Clone()
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		metrics:     append([]string(nil), ledger.DefaultMetrics...),
		location:    time.UTC,
		deviation:   deviation.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the configuration, prepares the pool and migrates the
// store when one is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if err := s.deviation.Validate(); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Migrate(ctx); err != nil {
			return fmt.Errorf("start service: %w", err)
		}
	}

	s.pool = worker.NewPool(s.workerCount,
		worker.WithName("accounts"),
		worker.WithLogger(s.logger),
	)
	s.started = true
	s.logger.Info(ctx, "glwatch service started",
		logger.Int("workers", s.workerCount),
		logger.Any("metrics", s.metrics),
		logger.Bool("history", s.store != nil),
	)
	return nil
}

// Stop marks the service stopped. The store's database is owned by the
// caller and stays open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.pool = nil
	s.logger.Info(context.Background(), "glwatch service stopped")
}

// DeviationConfig returns a copy of the default watchlist configuration.
func (s *Service) DeviationConfig() deviation.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviation.Clone()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"metrics":     append([]string(nil), s.metrics...),
		"history":     s.store != nil,
	}
}

func (s *Service) workerPool() (*worker.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.pool, nil
}
