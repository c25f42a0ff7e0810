package driving

import (
	"context"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// ChangeFeed turns the remote change feed into batches of typed events.
type ChangeFeed interface {
	// GetChanges drains every available change page and returns the union of
	// their events. The cursor only advances after a complete drain.
	GetChanges(ctx context.Context) ([]domain.ChangeEvent, error)

	// Cursor returns the position the next call starts from.
	Cursor() string
}

// Watcher runs the polling control loop.
type Watcher interface {
	// Run loops until ctx is cancelled or a format error occurs.
	Run(ctx context.Context) error

	// RunCycle performs a single iteration of the loop.
	RunCycle(ctx context.Context) error

	// Traverse rebuilds the watch set from the root folder and reconciles every entry.
	Traverse(ctx context.Context) error

	// Watched returns the current watch set.
	Watched() []domain.WatchedFile
}
