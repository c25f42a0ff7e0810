package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() Snapshot {
	return Snapshot{
		Store:  "local",
		Root:   "/scores",
		Cursor: "42",
		Records: []domain.GenerationRecord{
			{
				SourceID:    "Song.mscx",
				SourceName:  "Song.mscx",
				Outcome:     domain.OutcomeGenerated,
				Derivatives: 3,
				StartedAt:   testNow.Add(-time.Minute),
				EndedAt:     testNow.Add(-time.Minute + 1500*time.Millisecond),
			},
			{
				SourceID:   "Broken.mscz",
				SourceName: "Broken.mscz",
				Outcome:    domain.OutcomeFailed,
				Error:      "renderer exited with status 1",
				StartedAt:  testNow.Add(-2 * time.Minute),
				EndedAt:    testNow.Add(-2 * time.Minute),
			},
		},
	}
}

func newTestMonitor(t *testing.T, load Loader) *Monitor {
	t.Helper()
	m, err := NewMonitor(load, time.Second)
	require.NoError(t, err)
	m.now = func() time.Time { return testNow }
	return m
}

// loaded runs the refresh command and feeds its message back into the model.
func loaded(t *testing.T, m *Monitor) *Monitor {
	t.Helper()
	msg := m.refresh()()
	model, _ := m.Update(msg)
	return model.(*Monitor)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestNewMonitor(t *testing.T) {
	_, err := NewMonitor(nil, 0)
	require.ErrorIs(t, err, ErrMissingLoader)

	m, err := NewMonitor(func(context.Context) (Snapshot, error) { return Snapshot{}, nil }, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, m.interval)
	assert.NotNil(t, m.Init())
}

func TestMonitor_LoadsSnapshot(t *testing.T) {
	var gotCtx context.Context
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "monitor")

	m := newTestMonitor(t, func(ctx context.Context) (Snapshot, error) {
		gotCtx = ctx
		return testSnapshot(), nil
	}).WithContext(ctx)

	m = loaded(t, m)
	require.NoError(t, m.Err())
	assert.Equal(t, testSnapshot(), m.Snapshot())
	assert.Equal(t, "monitor", gotCtx.Value(ctxKey{}))

	view := m.View()
	assert.Contains(t, view, "scoresync monitor")
	assert.Contains(t, view, "/scores")
	assert.Contains(t, view, "42")
	assert.Contains(t, view, "Song.mscx")
	assert.Contains(t, view, "3 pdfs")
	assert.Contains(t, view, "1 minute ago")
	assert.Contains(t, view, "Broken.mscz")
}

func TestMonitor_LoadErrorKeepsPreviousSnapshot(t *testing.T) {
	fail := false
	m := newTestMonitor(t, func(context.Context) (Snapshot, error) {
		if fail {
			return Snapshot{}, errors.New("database is locked")
		}
		return testSnapshot(), nil
	})

	m = loaded(t, m)
	fail = true
	m = loaded(t, m)

	require.Error(t, m.Err())
	assert.Len(t, m.Snapshot().Records, 2)
	assert.Contains(t, m.View(), "Error: database is locked")
}

func TestMonitor_EmptyHistory(t *testing.T) {
	m := loaded(t, newTestMonitor(t, func(context.Context) (Snapshot, error) {
		return Snapshot{Store: "drive", Root: "https://drive.google.com/drive/folders/abc"}, nil
	}))

	view := m.View()
	assert.Contains(t, view, "No generation runs recorded yet.")
	assert.Contains(t, view, "(none)")
}

func TestMonitor_Navigation(t *testing.T) {
	m := loaded(t, newTestMonitor(t, func(context.Context) (Snapshot, error) {
		return testSnapshot(), nil
	}))

	tests := []struct {
		key  string
		want int
	}{
		{"up", 0},
		{"down", 1},
		{"j", 1},
		{"k", 0},
		{"j", 1},
	}
	for _, tt := range tests {
		m.Update(keyMsg(tt.key))
		assert.Equal(t, tt.want, m.Selected(), "after %s", tt.key)
	}

	assert.NotContains(t, m.View(), "renderer exited")
	m.Update(keyMsg("enter"))
	assert.Contains(t, m.View(), "renderer exited with status 1")
}

func TestMonitor_SelectionClampedOnShrink(t *testing.T) {
	snap := testSnapshot()
	m := loaded(t, newTestMonitor(t, func(context.Context) (Snapshot, error) {
		return snap, nil
	}))
	m.Update(keyMsg("down"))
	require.Equal(t, 1, m.Selected())

	snap.Records = snap.Records[:1]
	m = loaded(t, m)
	assert.Equal(t, 0, m.Selected())
}

func TestMonitor_Keys(t *testing.T) {
	var loads int
	m := newTestMonitor(t, func(context.Context) (Snapshot, error) {
		loads++
		return testSnapshot(), nil
	})

	t.Run("quit", func(t *testing.T) {
		_, cmd := m.Update(keyMsg("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("refresh", func(t *testing.T) {
		_, cmd := m.Update(keyMsg("r"))
		require.NotNil(t, cmd)
		before := loads
		assert.IsType(t, snapshotMsg{}, cmd())
		assert.Equal(t, before+1, loads)
	})

	t.Run("help", func(t *testing.T) {
		assert.NotContains(t, m.View(), "down")
		m.Update(keyMsg("?"))
		assert.Contains(t, m.View(), "down")
	})
}

func TestMonitor_TickReloads(t *testing.T) {
	m := newTestMonitor(t, func(context.Context) (Snapshot, error) {
		return testSnapshot(), nil
	})

	_, cmd := m.Update(tickMsg(testNow))
	assert.NotNil(t, cmd)
}

func TestMonitor_WindowSize(t *testing.T) {
	m := loaded(t, newTestMonitor(t, func(context.Context) (Snapshot, error) {
		return testSnapshot(), nil
	}))

	m.Update(tea.WindowSizeMsg{Width: 12, Height: 10})
	line := m.clip(m.renderRecord(1, &m.snapshot.Records[1]))
	assert.LessOrEqual(t, len([]rune(line)), 12)
}
