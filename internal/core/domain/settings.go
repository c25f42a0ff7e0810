package domain

import (
	"path/filepath"
	"time"
)

// StoreKind selects the remote storage backend.
type StoreKind string

// Available store kinds.
const (
	// StoreDrive syncs a Google Drive folder tree.
	StoreDrive StoreKind = "drive"

	// StoreLocal syncs a local directory tree.
	StoreLocal StoreKind = "local"
)

// IsValid returns true if the store kind is recognised.
func (k StoreKind) IsValid() bool {
	switch k {
	case StoreDrive, StoreLocal:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k StoreKind) String() string {
	return string(k)
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Store    StoreSettings
	Renderer RendererSettings
	Layout   LayoutSettings
	Watch    WatchSettings
	Google   GoogleSettings

	// DataDir holds the state database and the daemon lock file.
	DataDir string
}

// StoreSettings configures the remote storage backend.
type StoreSettings struct {
	// Kind selects the backend.
	Kind StoreKind

	// Root is the Drive folder id or the local directory to watch.
	Root string
}

// RendererSettings configures the external page-layout renderer.
type RendererSettings struct {
	// Binary is the path of the renderer executable.
	Binary string

	// Retries is how many times a failed render is retried.
	Retries int

	// Timeout bounds a single renderer invocation. Zero means no timeout.
	Timeout time.Duration
}

// LayoutSettings configures the part layout search and style overrides.
type LayoutSettings struct {
	// MinSpacing is where the spacing search starts.
	MinSpacing float64

	// DefaultSpacing is the renderer's native spacing and the search bound.
	DefaultSpacing float64

	// SpacingStep is the linear search increment.
	SpacingStep float64

	// MinEmptyMeasures is the multi-measure rest creation threshold.
	MinEmptyMeasures int

	// MinMMRestWidth is the minimum multi-measure rest width.
	MinMMRestWidth float64

	// Margin overrides page margins when non-zero.
	Margin float64
}

// WatchSettings configures the polling loop.
type WatchSettings struct {
	// PollInterval is the sleep between cycles.
	PollInterval time.Duration

	// FullScanEvery is how many cycles pass between full traversals.
	FullScanEvery int
}

// GoogleSettings configures Drive access.
type GoogleSettings struct {
	// CredentialsFile is the OAuth client secrets file.
	CredentialsFile string

	// TokenFile stores the OAuth token between runs.
	TokenFile string

	// RequestsPerSecond is the sustained Drive request rate.
	RequestsPerSecond float64

	// Burst is the maximum request burst.
	Burst int
}

// Default layout constants match the renderer's own defaults.
const (
	DefaultMinSpacing       = 1.5
	DefaultRendererSpacing  = 1.76389
	DefaultSpacingStep      = 0.025
	DefaultMinEmptyMeasures = 2
	DefaultMinMMRestWidth   = 4.0
)

// DefaultAppSettings returns sensible defaults rooted at baseDir.
func DefaultAppSettings(baseDir string) AppSettings {
	return AppSettings{
		Store: StoreSettings{
			Kind: StoreDrive,
		},
		Renderer: RendererSettings{
			Retries: 2,
		},
		Layout: LayoutSettings{
			MinSpacing:       DefaultMinSpacing,
			DefaultSpacing:   DefaultRendererSpacing,
			SpacingStep:      DefaultSpacingStep,
			MinEmptyMeasures: DefaultMinEmptyMeasures,
			MinMMRestWidth:   DefaultMinMMRestWidth,
		},
		Watch: WatchSettings{
			PollInterval:  5 * time.Second,
			FullScanEvery: 10,
		},
		Google: GoogleSettings{
			CredentialsFile:   filepath.Join(baseDir, "credentials.json"),
			TokenFile:         filepath.Join(baseDir, "token.json"),
			RequestsPerSecond: 8.0,
			Burst:             10,
		},
		DataDir: filepath.Join(baseDir, "data"),
	}
}
