package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
	"github.com/custodia-labs/scoresync/internal/logger"
	"github.com/custodia-labs/scoresync/internal/score"
)

// Ensure ScoreConverter implements the interface.
var _ driving.ScoreConverter = (*ScoreConverter)(nil)

// ScoreConverter turns a local score into its derivative set.
type ScoreConverter struct {
	renderer driven.Renderer
	layout   *LayoutSearch
}

// NewScoreConverter creates a converter. Parts are rendered through layout.
func NewScoreConverter(renderer driven.Renderer, layout *LayoutSearch) *ScoreConverter {
	return &ScoreConverter{
		renderer: renderer,
		layout:   layout,
	}
}

// Convert renders the full score and one PDF per instrument part into outDir.
// Scores with manual parts go through the renderer's batch mode instead of the splitter.
func (c *ScoreConverter) Convert(ctx context.Context, sourcePath, outDir string) ([]string, error) {
	song := songName(sourcePath)

	doc, err := score.Load(sourcePath)
	if err != nil {
		return nil, err
	}

	manual, err := doc.HasManualParts()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if manual {
		logger.Debug("%s has manual parts, using batch conversion", song)
		err := c.renderer.ConvertWithParts(ctx, sourcePath,
			filepath.Join(outDir, domain.ScoreDerivativeName(song)),
			filepath.Join(outDir, domain.PartPatternPrefix(song)),
			domain.DerivativeSuffix)
		if err != nil {
			return nil, err
		}
		return listDerivatives(outDir, song)
	}

	scorePath := filepath.Join(outDir, domain.ScoreDerivativeName(song))
	if err := c.renderer.Convert(ctx, sourcePath, scorePath, nil); err != nil {
		return nil, err
	}
	outputs := []string{scorePath}

	parts, err := doc.SplitToParts()
	if err != nil {
		return nil, err
	}

	work, err := os.MkdirTemp("", "scoresync-parts-*")
	if err != nil {
		return nil, fmt.Errorf("create part directory: %w", err)
	}
	defer os.RemoveAll(work)

	written := make(map[string]bool, len(parts))
	for i, part := range parts {
		name := domain.PartDerivativeName(song, safeFileName(part.PartName()))
		if written[name] {
			logger.Warn("%s: part %q resolves to an existing name, overwriting %s", song, part.PartName(), name)
		}

		markup := filepath.Join(work, fmt.Sprintf("part-%d%s", i+1, domain.ExtScoreMarkup))
		if err := part.WriteFile(markup); err != nil {
			return nil, fmt.Errorf("write part %s: %w", part.PartName(), err)
		}

		out := filepath.Join(outDir, name)
		choice, err := c.layout.RenderMinimalPages(ctx, markup, out)
		if err != nil {
			return nil, fmt.Errorf("render part %s: %w", part.PartName(), err)
		}
		logger.Debug("%s: %d pages at spacing %.5f after %d renders", name, choice.Pages, choice.Spacing, choice.Renders)

		if !written[name] {
			outputs = append(outputs, out)
		}
		written[name] = true
	}

	return outputs, nil
}

// Split writes the derived part markup files into outDir without rendering.
func (c *ScoreConverter) Split(_ context.Context, sourcePath, outDir string) ([]string, error) {
	song := songName(sourcePath)

	doc, err := score.Load(sourcePath)
	if err != nil {
		return nil, err
	}
	parts, err := doc.SplitToParts()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		path := filepath.Join(outDir, song+" - "+safeFileName(part.PartName())+domain.ExtScoreMarkup)
		if err := part.WriteFile(path); err != nil {
			return nil, fmt.Errorf("write part %s: %w", part.PartName(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// listDerivatives returns the derivatives of song in dir, full score first.
func listDerivatives(dir, song string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !domain.BelongsToSong(song, entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	full := domain.ScoreDerivativeName(song)
	sort.SliceStable(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) == full && filepath.Base(paths[j]) != full
	})
	return paths, nil
}

func songName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// safeFileName replaces path separators so a part name stays one path element.
func safeFileName(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(name)
}
