package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/logger"
)

var runOnce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the root folder and regenerate stale PDFs",
	Long: `Traverses the configured root folder, regenerates every score whose PDFs
are missing or older than the source, then polls the change feed until
interrupted. A full traversal is repeated every watch.full_scan_every cycles.

Only one run may use a data directory at a time.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "traverse and reconcile once, then exit")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	logger.Info("watching %s root %s", settings.Store.Kind, settings.Store.Root)
	if runOnce {
		err = eng.watcher.Traverse(ctx)
	} else {
		err = eng.watcher.Run(ctx)
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		logger.Info("stopped")
		return nil
	}
	return err
}
