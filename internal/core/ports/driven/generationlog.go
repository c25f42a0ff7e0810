package driven

import (
	"context"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// GenerationLog persists the history of reconcile passes.
type GenerationLog interface {
	// Record appends a history entry.
	Record(ctx context.Context, record domain.GenerationRecord) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.GenerationRecord, error)

	// LastForSource returns the newest entry for a source.
	// Returns domain.ErrNotFound if the source has no history.
	LastForSource(ctx context.Context, sourceID string) (*domain.GenerationRecord, error)
}
