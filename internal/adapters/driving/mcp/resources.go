package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const (
	uriScheme = "scoresync://"

	runsURI        = uriScheme + "runs"
	lastRunPrefix  = uriScheme + "last-run/"
	resourceRunCap = 50
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         runsURI,
		Name:        "runs",
		Description: "The most recent PDF generation runs",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: lastRunPrefix + "{+fileId}",
		Name:        "last-run",
		Description: "The latest generation run of one score",
		MIMEType:    "application/json",
	}, s.handleLastRunResource)
}

func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.History.Recent(ctx, resourceRunCap)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]RunOutput, len(records))
	for i := range records {
		runs[i] = toRunOutput(&records[i])
	}
	return jsonResource(req.Params.URI, runs)
}

func (s *Server) handleLastRunResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	fileID := extractFileID(req.Params.URI)
	if fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	record, err := s.ports.History.LastForSource(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading last run: %w", err)
	}
	return jsonResource(req.Params.URI, toRunOutput(record))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractFileID returns the score id of a scoresync://last-run/{fileId} URI.
func extractFileID(uri string) string {
	if !strings.HasPrefix(uri, lastRunPrefix) {
		return ""
	}
	return strings.TrimPrefix(uri, lastRunPrefix)
}
