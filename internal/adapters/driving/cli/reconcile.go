package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <file-id>...",
	Short: "Regenerate the PDFs of specific scores",
	Long: `Checks each named source and regenerates its PDFs when they are stale or
missing, exactly as the watcher would. File ids are Drive ids, or paths
relative to store.root for a local store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(true)
	if err != nil {
		return err
	}

	eng, err := openEngine(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer eng.Close() //nolint:errcheck // nothing useful to do on close failure

	var failed int
	for _, id := range args {
		result, err := eng.regen.Reconcile(cmd.Context(), id)
		if err != nil {
			failed++
			cmd.Printf("%s: %v\n", id, err)
			if domain.IsFormatError(err) {
				return err
			}
			continue
		}
		cmd.Printf("%s: %s (%d written, %d trashed)\n",
			nameOrID(result), result.Outcome, len(result.Touched()), len(result.Trashed))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scores failed", failed, len(args))
	}
	return nil
}

func nameOrID(result *domain.GenerationResult) string {
	if result.SourceName != "" {
		return result.SourceName
	}
	return result.SourceID
}
