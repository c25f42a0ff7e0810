package mcp

import (
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
)

// Ports aggregates the core interfaces the MCP server calls.
type Ports struct {
	// History reads the generation log.
	History driven.GenerationLog

	// Regenerator reconciles single scores. Optional: without it the
	// reconcile tool reports ErrReconcileUnavailable.
	Regenerator driving.Regenerator
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.History == nil {
		return ErrMissingHistory
	}
	return nil
}
