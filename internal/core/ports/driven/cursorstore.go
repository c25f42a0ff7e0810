package driven

import "context"

// CursorStore persists change-feed cursors keyed by the watched root.
type CursorStore interface {
	// GetCursor returns the saved cursor, or "" if none exists.
	GetCursor(ctx context.Context, rootID string) (string, error)

	// SaveCursor stores the cursor for rootID, replacing any previous value.
	SaveCursor(ctx context.Context, rootID, cursor string) error
}
