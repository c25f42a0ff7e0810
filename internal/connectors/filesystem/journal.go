package filesystem

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

const defaultJournalSize = 10000

// position is a point in a journal. The epoch changes whenever the journal
// loses history, which invalidates every earlier position.
type position struct {
	epoch int64
	seq   int64
}

func (p position) String() string {
	return fmt.Sprintf("%d:%d", p.epoch, p.seq)
}

func parsePosition(s string) (position, error) {
	epoch, seq, ok := strings.Cut(s, ":")
	if !ok {
		return position{}, fmt.Errorf("cursor %q: %w", s, domain.ErrInvalidInput)
	}
	e, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return position{}, fmt.Errorf("cursor %q: %w", s, domain.ErrInvalidInput)
	}
	n, err := strconv.ParseInt(seq, 10, 64)
	if err != nil || n < 0 {
		return position{}, fmt.Errorf("cursor %q: %w", s, domain.ErrInvalidInput)
	}
	return position{epoch: e, seq: n}, nil
}

// journal is a bounded in-memory log of change events.
type journal struct {
	mu     sync.Mutex
	epoch  int64
	first  int64 // sequence number of events[0]
	events []domain.ChangeEvent
	limit  int
}

func newJournal(limit int) *journal {
	return &journal{epoch: time.Now().UnixNano(), limit: limit}
}

func (j *journal) append(event domain.ChangeEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = append(j.events, event)
	if over := len(j.events) - j.limit; over > 0 {
		j.events = append([]domain.ChangeEvent(nil), j.events[over:]...)
		j.first += int64(over)
	}
}

// reset drops all history and starts a new epoch.
func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.epoch++
	j.first = 0
	j.events = nil
}

func (j *journal) end() position {
	j.mu.Lock()
	defer j.mu.Unlock()
	return position{epoch: j.epoch, seq: j.first + int64(len(j.events))}
}

// read returns up to limit events from pos and the position after them.
func (j *journal) read(pos position, limit int) ([]domain.ChangeEvent, position, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	end := j.first + int64(len(j.events))
	if pos.epoch != j.epoch || pos.seq < j.first || pos.seq > end {
		return nil, position{}, fmt.Errorf("cursor %s: %w", pos, domain.ErrCursorExpired)
	}

	from := int(pos.seq - j.first)
	to := len(j.events)
	if limit > 0 && to-from > limit {
		to = from + limit
	}

	events := append([]domain.ChangeEvent(nil), j.events[from:to]...)
	return events, position{epoch: j.epoch, seq: j.first + int64(to)}, nil
}
