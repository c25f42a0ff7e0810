package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// spacingEpsilon absorbs float drift when comparing against the default spacing.
const spacingEpsilon = 1e-9

// LayoutChoice is the spacing a layout search settled on.
type LayoutChoice struct {
	Spacing float64
	Pages   int
	Renders int
}

// LayoutSearch renders parts with the loosest spacing that keeps the page
// count reached at the minimum spacing.
type LayoutSearch struct {
	renderer driven.Renderer
	pages    driven.PageCounter
	layout   domain.LayoutSettings
}

// NewLayoutSearch creates a layout search over the given renderer.
func NewLayoutSearch(renderer driven.Renderer, pages driven.PageCounter, layout domain.LayoutSettings) *LayoutSearch {
	return &LayoutSearch{
		renderer: renderer,
		pages:    pages,
		layout:   layout,
	}
}

// RenderMinimalPages renders input to output. Spacing starts at the minimum
// and grows linearly; once a render needs more pages than the first one, the
// previous spacing is rendered again and kept. If the default spacing is
// reached first, the last render stands.
func (s *LayoutSearch) RenderMinimalPages(ctx context.Context, input, output string) (LayoutChoice, error) {
	if s.layout.SpacingStep <= 0 {
		return LayoutChoice{}, fmt.Errorf("spacing step %v: %w", s.layout.SpacingStep, domain.ErrInvalidInput)
	}

	var choice LayoutChoice
	minPages := 0
	for i := 0; ; i++ {
		// Derive from the counter so drift does not accumulate.
		spacing := s.layout.MinSpacing + float64(i)*s.layout.SpacingStep
		if i > 0 && spacing > s.layout.DefaultSpacing+spacingEpsilon {
			return choice, nil
		}

		pages, err := s.render(ctx, input, output, spacing)
		choice.Renders++
		if err != nil {
			return choice, err
		}

		if i == 0 {
			minPages = pages
		} else if pages > minPages {
			previous := spacing - s.layout.SpacingStep
			logger.Debug("spacing %.5f needs %d pages, settling on %.5f", spacing, pages, previous)
			if _, err := s.render(ctx, input, output, previous); err != nil {
				return choice, err
			}
			choice.Renders++
			choice.Spacing = previous
			choice.Pages = minPages
			return choice, nil
		}

		choice.Spacing = spacing
		choice.Pages = pages
	}
}

func (s *LayoutSearch) render(ctx context.Context, input, output string, spacing float64) (int, error) {
	style := s.Style()
	style.Spacing = spacing
	if err := s.renderer.Convert(ctx, input, output, &style); err != nil {
		return 0, err
	}

	pages, err := s.pages.PageCount(output)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", output, err)
	}
	return pages, nil
}

// Style returns the configured overrides without a spacing value.
func (s *LayoutSearch) Style() driven.StyleOverrides {
	return driven.StyleOverrides{
		MinEmptyMeasures: s.layout.MinEmptyMeasures,
		MinMMRestWidth:   s.layout.MinMMRestWidth,
		Margin:           s.layout.Margin,
	}
}
