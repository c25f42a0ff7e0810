package driving

import "github.com/custodia-labs/scoresync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get reads settings from the config store, filling unset keys with defaults.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Validate checks that settings are usable, including that the renderer binary exists.
	Validate(settings *domain.AppSettings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
