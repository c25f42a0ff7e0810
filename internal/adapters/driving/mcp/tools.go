package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const (
	defaultRunLimit = 10
	maxRunLimit     = 200
)

// RecentRunsInput is the input schema for the recent_runs tool.
type RecentRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 10)"`
}

// RecentRunsOutput is the output schema for the recent_runs tool.
type RecentRunsOutput struct {
	Runs  []RunOutput `json:"runs"`
	Count int         `json:"count"`
}

// RunOutput is one generation pass.
type RunOutput struct {
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	Outcome     string `json:"outcome"`
	Derivatives int    `json:"derivatives"`
	Trashed     int    `json:"trashed"`
	StartedAt   string `json:"started_at"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// ReconcileInput is the input schema for the reconcile tool.
type ReconcileInput struct {
	FileID string `json:"file_id" jsonschema:"Drive file id of the score, or its path relative to the root for a local store"`
}

// ReconcileOutput is the output schema for the reconcile tool.
type ReconcileOutput struct {
	SourceID   string   `json:"source_id"`
	SourceName string   `json:"source_name"`
	Outcome    string   `json:"outcome"`
	Written    []string `json:"written"`
	Trashed    []string `json:"trashed"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recent_runs",
		Description: "List the most recent PDF generation runs, newest first",
	}, s.handleRecentRuns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reconcile",
		Description: "Regenerate the PDFs of one score if they are missing or older than the score",
	}, s.handleReconcile)
}

func (s *Server) handleRecentRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecentRunsInput,
) (*mcp.CallToolResult, RecentRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	limit = min(limit, maxRunLimit)

	records, err := s.ports.History.Recent(ctx, limit)
	if err != nil {
		return nil, RecentRunsOutput{}, err
	}

	output := RecentRunsOutput{
		Runs:  make([]RunOutput, len(records)),
		Count: len(records),
	}
	for i := range records {
		output.Runs[i] = toRunOutput(&records[i])
	}
	return nil, output, nil
}

func (s *Server) handleReconcile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReconcileInput,
) (*mcp.CallToolResult, ReconcileOutput, error) {
	if s.ports.Regenerator == nil {
		return nil, ReconcileOutput{}, ErrReconcileUnavailable
	}
	if input.FileID == "" {
		return nil, ReconcileOutput{}, domain.ErrInvalidInput
	}

	result, err := s.ports.Regenerator.Reconcile(ctx, input.FileID)
	if err != nil {
		return nil, ReconcileOutput{}, err
	}

	return nil, ReconcileOutput{
		SourceID:   result.SourceID,
		SourceName: result.SourceName,
		Outcome:    string(result.Outcome),
		Written:    nonNil(result.Touched()),
		Trashed:    nonNil(result.Trashed),
	}, nil
}

func toRunOutput(r *domain.GenerationRecord) RunOutput {
	return RunOutput{
		SourceID:    r.SourceID,
		SourceName:  r.SourceName,
		Outcome:     string(r.Outcome),
		Derivatives: r.Derivatives,
		Trashed:     r.Trashed,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:  r.EndedAt.Sub(r.StartedAt).Milliseconds(),
		Error:       r.Error,
	}
}

// nonNil keeps empty lists as [] in the JSON output.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
