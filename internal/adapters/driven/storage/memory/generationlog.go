package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// Ensure GenerationLog implements the interface.
var _ driven.GenerationLog = (*GenerationLog)(nil)

// GenerationLog is an in-memory implementation of driven.GenerationLog.
type GenerationLog struct {
	mu      sync.RWMutex
	records []domain.GenerationRecord
}

// NewGenerationLog creates a new in-memory generation log.
func NewGenerationLog() *GenerationLog {
	return &GenerationLog{}
}

// Record appends a history entry.
func (l *GenerationLog) Record(_ context.Context, record domain.GenerationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *GenerationLog) Recent(_ context.Context, limit int) ([]domain.GenerationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.GenerationRecord, 0, min(limit, len(l.records)))
	for i := len(l.records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, l.records[i])
	}
	return result, nil
}

// LastForSource returns the newest entry for a source.
func (l *GenerationLog) LastForSource(_ context.Context, sourceID string) (*domain.GenerationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].SourceID == sourceID {
			record := l.records[i]
			return &record, nil
		}
	}
	return nil, domain.ErrNotFound
}
