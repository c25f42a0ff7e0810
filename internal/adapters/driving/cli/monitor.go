package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui"
)

var (
	monitorInterval time.Duration
	monitorLimit    int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the generation history in a terminal UI",
	Long: `Opens a read-only terminal view of the change cursor and the most recent
generation runs, refreshed on a timer. It reads the state database of the
data directory, so it can run next to 'scoresync run'.

Controls:
  ↑/k, ↓/j - Select a run
  Enter    - Toggle details of the selected run
  r        - Refresh now
  ?        - More keys
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

// runProgram runs a tea model. Tests replace it.
var runProgram = func(m *tui.Monitor) error {
	return m.Run()
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", tui.DefaultInterval, "refresh interval")
	monitorCmd.Flags().IntVarP(&monitorLimit, "limit", "n", 20, "number of recent runs to show")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}

	state, err := openState(settings.DataDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer state.Close() //nolint:errcheck // read-only use

	monitor, err := tui.NewMonitor(func(ctx context.Context) (tui.Snapshot, error) {
		return loadSnapshot(ctx, settings, state, monitorLimit)
	}, monitorInterval)
	if err != nil {
		return err
	}
	monitor.WithContext(cmd.Context())

	if err := runProgram(monitor); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
