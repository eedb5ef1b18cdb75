package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
)

type runResponse struct {
	Run  repository.Run  `json:"run"`
	Rows []deviation.Row `json:"rows"`
}

// handleCreateRun handles POST /api/v1/runs.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_run"
	var req ledgerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeFailure(w, r, op, badRequest(op, err))
		return
	}
	period, err := ledger.ParseGranularity(defaultPeriod(req.Period))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	cfg, err := s.configFor(req.Config)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	res, err := s.deps.Run(r.Context(), tabular.Pair(req.Prior, req.Current), period, cfg)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, runResponse{Run: res.Run, Rows: nonNil(res.Rows)})
}

// handleListRuns handles GET /api/v1/runs?limit=N.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeFailure(w, r, op, badRequest(op, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	runs, err := s.deps.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if runs == nil {
		runs = []repository.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun handles GET /api/v1/runs/{id}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	run, rows, err := s.deps.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Rows: nonNil(rows)})
}

func nonNil(rows []deviation.Row) []deviation.Row {
	if rows == nil {
		return []deviation.Row{}
	}
	return rows
}
