package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"drive id", "scoresync://last-run/1AbC", "1AbC"},
		{"nested local path", "scoresync://last-run/Set 2/Waltz.mscx", "Set 2/Waltz.mscx"},
		{"other prefix", "scoresync://runs", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractFileID(tt.uri))
		})
	}
}

func TestServer_handleRunsResource(t *testing.T) {
	history := historyWith(t,
		record("a", "A.mscz", domain.OutcomeGenerated, 0),
		record("b", "B.mscz", domain.OutcomeSkipped, 1),
	)
	server, err := NewServer(&Ports{History: history})
	require.NoError(t, err)

	result, err := server.handleRunsResource(context.Background(), makeReadResourceRequest(runsURI))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var runs []RunOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "B.mscz", runs[0].SourceName)
	assert.Equal(t, "skipped", runs[0].Outcome)
}

func TestServer_handleLastRunResource(t *testing.T) {
	ctx := context.Background()
	history := historyWith(t,
		record("a", "A.mscz", domain.OutcomeFailed, 0),
		record("a", "A.mscz", domain.OutcomeGenerated, 1),
	)
	server, err := NewServer(&Ports{History: history})
	require.NoError(t, err)

	t.Run("latest run", func(t *testing.T) {
		result, err := server.handleLastRunResource(ctx, makeReadResourceRequest("scoresync://last-run/a"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"outcome": "generated"`)
	})

	t.Run("unknown score", func(t *testing.T) {
		_, err := server.handleLastRunResource(ctx, makeReadResourceRequest("scoresync://last-run/zzz"))
		require.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		_, err := server.handleLastRunResource(ctx, makeReadResourceRequest("scoresync://elsewhere"))
		require.Error(t, err)
	})
}
