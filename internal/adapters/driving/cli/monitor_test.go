package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui"
)

func TestMonitorCmd(t *testing.T) {
	useFakeRenderer(t)
	env, root := localEnv(t)
	src := writeScore(t, root, "Song.mscx", "Flute")
	hourAgo := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, hourAgo, hourAgo))

	_, err := env.execute(t, "reconcile", "Song.mscx")
	require.NoError(t, err)

	var shown tui.Snapshot
	old := runProgram
	runProgram = func(m *tui.Monitor) error {
		// Init batches the first load with the timer. Only the load runs here.
		batch, ok := m.Init()().(tea.BatchMsg)
		require.True(t, ok)
		model, _ := m.Update(batch[0]())
		shown = model.(*tui.Monitor).Snapshot()
		return nil
	}
	t.Cleanup(func() { runProgram = old })

	_, err = env.execute(t, "monitor", "--interval", "1s")
	require.NoError(t, err)

	assert.Equal(t, "local", shown.Store)
	assert.Equal(t, root, shown.Root)
	require.Len(t, shown.Records, 1)
	assert.Equal(t, "Song.mscx", shown.Records[0].SourceName)
	assert.FileExists(t, filepath.Join(root, "Song.gen.pdf"))
}
