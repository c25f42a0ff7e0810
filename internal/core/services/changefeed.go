package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure ChangeFeed implements the interface.
var _ driving.ChangeFeed = (*ChangeFeed)(nil)

// ChangeFeed tracks a resumable position in the store's change feed.
type ChangeFeed struct {
	store   driven.RemoteStore
	cursors driven.CursorStore
	rootID  string
	cursor  string
}

// NewChangeFeed creates a change feed for the tree under rootID.
// cursors may be nil, in which case the position is kept in memory only.
func NewChangeFeed(store driven.RemoteStore, cursors driven.CursorStore, rootID string) *ChangeFeed {
	return &ChangeFeed{
		store:   store,
		cursors: cursors,
		rootID:  rootID,
	}
}

// GetChanges drains the feed from the current cursor and returns every event
// seen. The cursor moves to the feed's new start token only after the final
// page; a failure part way leaves it where it was.
func (f *ChangeFeed) GetChanges(ctx context.Context) ([]domain.ChangeEvent, error) {
	if err := f.ensureCursor(ctx); err != nil {
		return nil, err
	}

	var events []domain.ChangeEvent
	token := f.cursor
	for pages := 1; ; pages++ {
		page, err := f.store.ListChanges(ctx, token)
		if errors.Is(err, domain.ErrCursorExpired) {
			return nil, f.restart(ctx, err)
		}
		if err != nil {
			return nil, fmt.Errorf("list changes: %w", err)
		}
		events = append(events, page.Changes...)

		if page.Drained() {
			logger.Debug("change feed drained: %d events over %d pages", len(events), pages)
			f.advance(ctx, page.NewStartPageToken)
			return events, nil
		}
		if page.NextPageToken == "" {
			return nil, fmt.Errorf("change page carries no cursor: %w", domain.ErrInvalidInput)
		}
		token = page.NextPageToken
	}
}

// Cursor returns the position the next call will start from.
func (f *ChangeFeed) Cursor() string {
	return f.cursor
}

func (f *ChangeFeed) ensureCursor(ctx context.Context) error {
	if f.cursor != "" {
		return nil
	}

	if f.cursors != nil {
		saved, err := f.cursors.GetCursor(ctx, f.rootID)
		if err != nil {
			return fmt.Errorf("load cursor: %w", err)
		}
		if saved != "" {
			logger.Debug("resuming change feed at %s", saved)
			f.cursor = saved
			return nil
		}
	}

	start, err := f.store.StartCursor(ctx)
	if err != nil {
		return fmt.Errorf("get start cursor: %w", err)
	}
	f.advance(ctx, start)
	return nil
}

// restart repositions the feed at the current end after the store rejected
// the cursor. Changes in between are lost, so the returned error still wraps
// cause and callers are expected to rescan.
func (f *ChangeFeed) restart(ctx context.Context, cause error) error {
	logger.Warn("change cursor expired, restarting feed")
	start, err := f.store.StartCursor(ctx)
	if err != nil {
		return fmt.Errorf("restart change feed: %w", errors.Join(cause, err))
	}
	f.advance(ctx, start)
	return fmt.Errorf("list changes: %w", cause)
}

// advance moves the in-memory cursor and persists it. Save failures are
// logged and do not hold back the in-memory cursor.
func (f *ChangeFeed) advance(ctx context.Context, cursor string) {
	f.cursor = cursor
	if f.cursors == nil {
		return
	}
	if err := f.cursors.SaveCursor(ctx, f.rootID, cursor); err != nil {
		logger.Warn("save change cursor: %v", err)
	}
}
