package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui"
	"github.com/custodia-labs/scoresync/internal/connectors/filesystem"
	"github.com/custodia-labs/scoresync/internal/connectors/google/drive"
	"github.com/custodia-labs/scoresync/internal/core/domain"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the change cursor and recent generation runs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}

	state, err := openState(settings.DataDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer state.Close() //nolint:errcheck // read-only use

	snap, err := loadSnapshot(cmd.Context(), settings, state, statusLimit)
	if err != nil {
		return err
	}
	cursor := snap.Cursor
	if cursor == "" {
		cursor = "(none, next run starts from now)"
	}

	cmd.Printf("Store:   %s\n", snap.Store)
	cmd.Printf("Root:    %s\n", snap.Root)
	cmd.Printf("Cursor:  %s\n", cursor)
	cmd.Printf("Config:  %s\n", configStore.Path())
	cmd.Println()

	records := snap.Records
	if len(records) == 0 {
		cmd.Println("No generation runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.SourceName,
			string(r.Outcome),
			strconv.Itoa(r.Derivatives),
			strconv.Itoa(r.Trashed),
			humanize.Time(r.StartedAt),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			sourceLocation(settings, r.SourceID),
			r.Error,
		})
	}
	cmd.Println(renderTable(
		[]string{"Score", "Outcome", "PDFs", "Trashed", "When", "Took", "Location", "Error"},
		rows, 2, 3, 5))
	return nil
}

// loadSnapshot reads the cursor of the configured root and the latest generation records.
func loadSnapshot(ctx context.Context, settings *domain.AppSettings, state stateStore, limit int) (tui.Snapshot, error) {
	rootID := settings.Store.Root
	if settings.Store.Kind == domain.StoreLocal {
		rootID = filesystem.RootID
	}

	cursor, err := state.CursorStore().GetCursor(ctx, rootID)
	if err != nil {
		return tui.Snapshot{}, err
	}
	records, err := state.GenerationLog().Recent(ctx, limit)
	if err != nil {
		return tui.Snapshot{}, err
	}
	return tui.Snapshot{
		Store:   settings.Store.Kind.String(),
		Root:    rootLocation(settings),
		Cursor:  cursor,
		Records: records,
	}, nil
}

func rootLocation(settings *domain.AppSettings) string {
	if settings.Store.Root == "" {
		return "(not set)"
	}
	if settings.Store.Kind == domain.StoreDrive {
		return drive.WebURL(settings.Store.Root, domain.MimeTypeFolder)
	}
	return settings.Store.Root
}

func sourceLocation(settings *domain.AppSettings, id string) string {
	if settings.Store.Kind == domain.StoreDrive {
		return drive.WebURL(id, "")
	}
	return filesystem.ResolvePath(settings.Store.Root, id)
}
