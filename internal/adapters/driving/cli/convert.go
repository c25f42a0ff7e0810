package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/core/services"
)

var (
	convertOutDir string
	splitOutDir   string
)

var convertCmd = &cobra.Command{
	Use:   "convert <score>",
	Short: "Render a local score and its parts to PDF",
	Long: `Renders a local .mscz or .mscx file to <song>.gen.pdf plus one
<song> - <part>.gen.pdf per instrument, using the same layout search as the
watcher. Output goes next to the score unless --out is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var splitCmd = &cobra.Command{
	Use:   "split <score>",
	Short: "Write one markup file per part without rendering",
	Long: `Splits a local score into single-instrument documents and writes them as
<song> - <part>.mscx. No renderer is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "output directory (default: the score's directory)")
	splitCmd.Flags().StringVarP(&splitOutDir, "out", "o", "", "output directory (default: the score's directory)")
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(splitCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}
	converter, err := newConverter(settings)
	if err != nil {
		return err
	}

	outputs, err := converter.Convert(cmd.Context(), args[0], outDir(convertOutDir, args[0]))
	if err != nil {
		return err
	}
	for _, path := range outputs {
		cmd.Println(path)
	}
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	converter := services.NewScoreConverter(nil, nil)

	outputs, err := converter.Split(cmd.Context(), args[0], outDir(splitOutDir, args[0]))
	if err != nil {
		return err
	}
	for _, path := range outputs {
		cmd.Println(path)
	}
	return nil
}

func outDir(flag, source string) string {
	if flag != "" {
		return flag
	}
	return filepath.Dir(source)
}
