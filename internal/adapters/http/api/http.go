// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/glwatch/internal/adapters/http/swagger"
	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/tabular"
	service "github.com/okian/glwatch/internal/app"
	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/logger"
)

const (
	defaultMaxRequestBytes = 32 << 20
	defaultListLimit       = 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Analyze(ctx context.Context, pairs []ledger.Pair, period ledger.Granularity) (service.Analysis, error)
	Watchlist(ctx context.Context, table accountrow.Table, cfg *deviation.Config) ([]deviation.Row, error)
	Run(ctx context.Context, pairs []ledger.Pair, period ledger.Granularity, cfg *deviation.Config) (service.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]repository.Run, error)
	GetRun(ctx context.Context, id string) (repository.Run, []deviation.Row, error)
	DeviationConfig() deviation.Config
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps            Dependencies
	stats           StatsProvider
	maxRequestBytes int64
	logger          logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRequestBytes caps request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBytes = n
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		stats:           stats,
		maxRequestBytes: defaultMaxRequestBytes,
		logger:          logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router with every endpoint attached.
//
//	GET  /healthz
//	GET  /metrics
//	POST /api/v1/analyze
//	POST /api/v1/watchlist
//	POST /api/v1/runs
//	GET  /api/v1/runs
//	GET  /api/v1/runs/{id}
//	GET  /api/v1/config/defaults
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", s.instrument("healthz", s.handleHealth))
	r.Get("/metrics", s.handleMetrics)
	swagger.Register(ctx, r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.instrument("analyze", s.handleAnalyze))
		r.Post("/watchlist", s.instrument("watchlist", s.handleWatchlist))
		r.Post("/runs", s.instrument("runs_create", s.handleCreateRun))
		r.Get("/runs", s.instrument("runs_list", s.handleListRuns))
		r.Get("/runs/{id}", s.instrument("runs_get", s.handleGetRun))
		r.Get("/config/defaults", s.instrument("config_defaults", s.handleConfigDefaults))
	})
	return r
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Issues  []string `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream errors to a status code.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoStore):
		return http.StatusServiceUnavailable, "history_disabled"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, ledger.ErrUnsupportedPeriod),
		errors.Is(err, deviation.ErrInvalidConfig),
		errors.Is(err, deviation.ErrMissingColumns),
		errors.Is(err, tabular.ErrMalformed),
		errors.Is(err, tabular.ErrEmptyInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	}
	return http.StatusInternalServerError, "internal_error"
}
