package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore is an in-memory implementation of driven.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]string),
	}
}

// GetCursor returns the saved cursor for rootID.
func (s *CursorStore) GetCursor(_ context.Context, rootID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[rootID], nil
}

// SaveCursor stores or replaces the cursor for rootID.
func (s *CursorStore) SaveCursor(_ context.Context, rootID, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[rootID] = cursor
	return nil
}
