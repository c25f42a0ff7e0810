package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStoreKind        = "store.kind"
	keyStoreRoot        = "store.root"
	keyRendererBinary   = "renderer.binary"
	keyRendererRetries  = "renderer.retries"
	keyRendererTimeout  = "renderer.timeout"
	keyMinSpacing       = "layout.min_spacing"
	keyDefaultSpacing   = "layout.default_spacing"
	keySpacingStep      = "layout.spacing_step"
	keyMinEmptyMeasures = "layout.min_empty_measures"
	keyMinMMRestWidth   = "layout.min_mmrest_width"
	keyMargin           = "layout.margin"
	keyPollInterval     = "watch.poll_interval"
	keyFullScanEvery    = "watch.full_scan_every"
	keyCredentialsFile  = "google.credentials_file"
	keyTokenFile        = "google.token_file"
	keyRequestsPerSec   = "google.requests_per_second"
	keyBurst            = "google.burst"
	keyDataDir          = "data_dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	baseDir     string
}

// NewSettingsService creates a new settings service. Default paths are rooted at baseDir.
func NewSettingsService(configStore driven.ConfigStore, baseDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		baseDir:     baseDir,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	rendererTimeout, err := s.getDuration(keyRendererTimeout, defaults.Renderer.Timeout)
	if err != nil {
		return nil, err
	}
	pollInterval, err := s.getDuration(keyPollInterval, defaults.Watch.PollInterval)
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Kind: s.getStoreKind(defaults.Store.Kind),
			Root: s.configStore.GetString(keyStoreRoot),
		},
		Renderer: domain.RendererSettings{
			Binary:  s.configStore.GetString(keyRendererBinary),
			Retries: s.getInt(keyRendererRetries, defaults.Renderer.Retries),
			Timeout: rendererTimeout,
		},
		Layout: domain.LayoutSettings{
			MinSpacing:       s.getFloat(keyMinSpacing, defaults.Layout.MinSpacing),
			DefaultSpacing:   s.getFloat(keyDefaultSpacing, defaults.Layout.DefaultSpacing),
			SpacingStep:      s.getFloat(keySpacingStep, defaults.Layout.SpacingStep),
			MinEmptyMeasures: s.getInt(keyMinEmptyMeasures, defaults.Layout.MinEmptyMeasures),
			MinMMRestWidth:   s.getFloat(keyMinMMRestWidth, defaults.Layout.MinMMRestWidth),
			Margin:           s.configStore.GetFloat(keyMargin), // No default - zero keeps the renderer's margins
		},
		Watch: domain.WatchSettings{
			PollInterval:  pollInterval,
			FullScanEvery: s.getInt(keyFullScanEvery, defaults.Watch.FullScanEvery),
		},
		Google: domain.GoogleSettings{
			CredentialsFile:   s.getString(keyCredentialsFile, defaults.Google.CredentialsFile),
			TokenFile:         s.getString(keyTokenFile, defaults.Google.TokenFile),
			RequestsPerSecond: s.getFloat(keyRequestsPerSec, defaults.Google.RequestsPerSecond),
			Burst:             s.getInt(keyBurst, defaults.Google.Burst),
		},
		DataDir: s.getString(keyDataDir, defaults.DataDir),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStoreKind, settings.Store.Kind.String()},
		{keyStoreRoot, settings.Store.Root},
		{keyRendererBinary, settings.Renderer.Binary},
		{keyRendererRetries, settings.Renderer.Retries},
		{keyRendererTimeout, settings.Renderer.Timeout.String()},
		{keyMinSpacing, settings.Layout.MinSpacing},
		{keyDefaultSpacing, settings.Layout.DefaultSpacing},
		{keySpacingStep, settings.Layout.SpacingStep},
		{keyMinEmptyMeasures, settings.Layout.MinEmptyMeasures},
		{keyMinMMRestWidth, settings.Layout.MinMMRestWidth},
		{keyMargin, settings.Layout.Margin},
		{keyPollInterval, settings.Watch.PollInterval.String()},
		{keyFullScanEvery, settings.Watch.FullScanEvery},
		{keyCredentialsFile, settings.Google.CredentialsFile},
		{keyTokenFile, settings.Google.TokenFile},
		{keyRequestsPerSec, settings.Google.RequestsPerSecond},
		{keyBurst, settings.Google.Burst},
		{keyDataDir, settings.DataDir},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return s.configStore.Save()
}

// Validate checks that settings are usable.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if !settings.Store.Kind.IsValid() {
		return fmt.Errorf("%w: unknown store kind %q", domain.ErrInvalidInput, settings.Store.Kind)
	}

	layout := settings.Layout
	if layout.MinSpacing <= 0 || layout.SpacingStep <= 0 {
		return fmt.Errorf("%w: layout spacing and step must be positive", domain.ErrInvalidInput)
	}
	if layout.MinSpacing > layout.DefaultSpacing {
		return fmt.Errorf("%w: min_spacing %v exceeds default_spacing %v",
			domain.ErrInvalidInput, layout.MinSpacing, layout.DefaultSpacing)
	}
	if settings.Watch.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", domain.ErrInvalidInput)
	}
	if settings.Renderer.Retries < 0 {
		return fmt.Errorf("%w: renderer retries must not be negative", domain.ErrInvalidInput)
	}

	return ValidateRendererBinary(settings.Renderer.Binary)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings(s.baseDir)
}

// ValidateRendererBinary checks that the renderer executable exists.
func ValidateRendererBinary(path string) error {
	if path == "" {
		return fmt.Errorf("renderer.binary is not set: %w", domain.ErrRendererNotFound)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%s: %w", path, domain.ErrRendererNotFound)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func (s *SettingsService) getStoreKind(defaultVal domain.StoreKind) domain.StoreKind {
	val := s.configStore.GetString(keyStoreKind)
	if val == "" {
		return defaultVal
	}
	return domain.StoreKind(val)
}
