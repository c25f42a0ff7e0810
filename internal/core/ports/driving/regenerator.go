package driving

import (
	"context"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// Regenerator keeps the derivative set of a score in step with its source.
type Regenerator interface {
	// Reconcile regenerates the derivatives of fileID when they are stale or
	// missing and trashes derivatives that the pass did not write.
	Reconcile(ctx context.Context, fileID string) (*domain.GenerationResult, error)
}

// ScoreConverter turns a local score into its derivative PDFs.
type ScoreConverter interface {
	// Convert renders the score at sourcePath into outDir and returns the
	// paths of the files written, full score first.
	Convert(ctx context.Context, sourcePath, outDir string) ([]string, error)

	// Split writes one markup file per derived part into outDir without rendering.
	Split(ctx context.Context, sourcePath, outDir string) ([]string, error)
}
