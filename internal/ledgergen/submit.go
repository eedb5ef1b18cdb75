package ledgergen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/glwatch/internal/adapters/repository"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/pkg/logger"
)

// Submission is the service's answer to a generated run.
type Submission struct {
	Run  repository.Run  `json:"run"`
	Rows []deviation.Row `json:"rows"`
}

type runRequest struct {
	Period  string `json:"period"`
	Prior   any    `json:"prior"`
	Current any    `json:"current"`
}

// Submit posts the generated ledgers to a running server's
// POST /api/v1/runs and returns the stored run.
func Submit(ctx context.Context, baseURL string, res Result, period string, timeout time.Duration) (Submission, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	body, err := json.Marshal(runRequest{Period: period, Prior: res.Prior, Current: res.Current})
	if err != nil {
		return Submission{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/api/v1/runs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Submission{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Submission{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return Submission{}, fmt.Errorf("%w: status %d: %s", ErrSubmit, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var sub Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return Submission{}, fmt.Errorf("decode response: %w", err)
	}
	logger.Get().Info(ctx, "run submitted",
		logger.String("id", sub.Run.ID),
		logger.Int("rows", len(sub.Rows)),
	)
	return sub, nil
}

// Verify checks that every shifted account made the watchlist. It returns
// the missing codes.
func Verify(res Result, rows []deviation.Row) []string {
	flagged := make(map[string]bool, len(rows))
	for _, r := range rows {
		flagged[r.AccountCode] = true
	}
	var missing []string
	for _, code := range res.Codes(Shifted) {
		if !flagged[code] {
			missing = append(missing, code)
		}
	}
	return missing
}
