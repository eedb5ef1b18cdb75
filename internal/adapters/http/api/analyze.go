package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
)

const formatCSV = "csv"

// ledgerRequest is the body of POST /api/v1/analyze and POST /api/v1/runs.
type ledgerRequest struct {
	Period  string         `json:"period"`
	Prior   tabular.Ledger `json:"prior"`
	Current tabular.Ledger `json:"current"`
	Config  map[string]any `json:"config,omitempty"`
}

func (l ledgerRequest) validate() error {
	if len(l.Prior) == 0 && len(l.Current) == 0 {
		return errors.New("prior and current ledgers are both empty")
	}
	return nil
}

// watchlistRequest is the JSON body of POST /api/v1/watchlist. A text/csv
// body is read as the table itself.
type watchlistRequest struct {
	Table  string         `json:"table"`
	Config map[string]any `json:"config,omitempty"`
}

type analysisResponse struct {
	Period  string             `json:"period"`
	Summary repository.Summary `json:"summary"`
	Columns []string           `json:"columns"`
	Rows    []map[string]any   `json:"rows"`
}

type analyzeResponse struct {
	Analyses []analysisResponse `json:"analyses"`
}

// handleAnalyze handles POST /api/v1/analyze. ?format=csv returns the
// comparison table of a single period as CSV.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	var req ledgerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeFailure(w, r, op, badRequest(op, err))
		return
	}
	periods, err := ledger.ParseGranularities(defaultPeriod(req.Period))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	csvOut := r.URL.Query().Get("format") == formatCSV
	if csvOut && len(periods) != 1 {
		s.writeFailure(w, r, op, badRequest(op, errors.New("csv output needs exactly one period")))
		return
	}

	pairs := tabular.Pair(req.Prior, req.Current)
	resp := analyzeResponse{Analyses: make([]analysisResponse, 0, len(periods))}
	for _, p := range periods {
		a, err := s.deps.Analyze(r.Context(), pairs, p)
		if err != nil {
			s.writeFailure(w, r, op, err)
			return
		}
		if csvOut {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			if err := tabular.WriteTable(w, a.Table); err != nil {
				s.writeFailure(w, r, op, err)
			}
			return
		}
		resp.Analyses = append(resp.Analyses, analysisResponse{
			Period:  string(a.Period),
			Summary: a.Summary,
			Columns: a.Table.Columns,
			Rows:    tabular.Records(a.Table),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWatchlist handles POST /api/v1/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.watchlist"
	var req watchlistRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestBytes))
		if err != nil {
			s.writeFailure(w, r, op, err)
			return
		}
		req.Table = string(body)
	} else if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	table, err := tabular.ReadTable(strings.NewReader(req.Table))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if issues := deviation.ValidateTable(table); len(issues) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_table",
			Message: "input is not a comparison results table",
			Issues:  issues,
		})
		return
	}
	cfg, err := s.configFor(req.Config)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	rows, err := s.deps.Watchlist(r.Context(), table, cfg)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if r.URL.Query().Get("format") == formatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := tabular.WriteWatchlistCSV(w, rows); err != nil {
			s.writeFailure(w, r, op, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

// handleConfigDefaults handles GET /api/v1/config/defaults.
func (s *Server) handleConfigDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.DeviationConfig().ToFlat())
}

// configFor layers request overrides over the service default. No
// overrides means the service default.
func (s *Server) configFor(overrides map[string]any) (*deviation.Config, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	cfg, err := s.deps.DeviationConfig().Overlay(overrides)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("decode body", errors.New("empty body"))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("decode body", err)
	}
	return nil
}

func defaultPeriod(p string) string {
	if strings.TrimSpace(p) == "" {
		return string(ledger.Monthly)
	}
	return p
}
