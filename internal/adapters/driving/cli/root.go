// Package cli implements the scoresync command line.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
	"github.com/custodia-labs/scoresync/internal/core/services"
	"github.com/custodia-labs/scoresync/internal/logger"
)

var version = "dev"

// Global flags.
var (
	configPath string
	verbose    bool
)

// Services shared by the commands, opened before each command runs.
var (
	configStore     driven.ConfigStore
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "scoresync",
	Short: "Keep score and part PDFs in step with their sources",
	Long: `scoresync watches a folder tree of MuseScore files and regenerates the
full score and per-instrument part PDFs next to each source whenever it changes.

The tree can live in Google Drive (store.kind = "drive") or in a local
directory (store.kind = "local"). Settings are read from
~/.scoresync/config.toml unless --config is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return openConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.scoresync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func openConfig() error {
	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.NewConfigStoreAt(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	configStore = store
	settingsService = services.NewSettingsService(store, filepath.Dir(store.Path()))
	return nil
}
