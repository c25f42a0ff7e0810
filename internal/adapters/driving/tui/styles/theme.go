// Package styles provides the colour theme for the monitor.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// Theme is the colour palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"),
		Secondary: lipgloss.Color("#06B6D4"),
		Muted:     lipgloss.Color("#6C7086"),
		Success:   lipgloss.Color("#A6E3A1"),
		Warning:   lipgloss.Color("#F9E2AF"),
		Error:     lipgloss.Color("#F38BA8"),
		Border:    lipgloss.Color("#45475A"),
	}
}

// Styles contains the lipgloss styles derived from a theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Label    lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Panel    lipgloss.Style

	outcomes map[domain.GenerationOutcome]lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme selects the default.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Label: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary).
			Width(8),

		Normal: lipgloss.NewStyle(),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Background(theme.Primary),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		outcomes: map[domain.GenerationOutcome]lipgloss.Style{
			domain.OutcomeGenerated: lipgloss.NewStyle().Foreground(theme.Success),
			domain.OutcomeUpToDate:  lipgloss.NewStyle().Foreground(theme.Muted),
			domain.OutcomeSkipped:   lipgloss.NewStyle().Foreground(theme.Warning),
			domain.OutcomeFailed:    lipgloss.NewStyle().Foreground(theme.Error).Bold(true),
		},
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Outcome returns the style for a generation outcome.
func (s *Styles) Outcome(o domain.GenerationOutcome) lipgloss.Style {
	if style, ok := s.outcomes[o]; ok {
		return style
	}
	return s.Normal
}
