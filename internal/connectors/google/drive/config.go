package drive

import "time"

// Config holds Google Drive store configuration.
type Config struct {
	// PageSize is the page size for list requests.
	PageSize int64
	// MaxRetries bounds retries of a transient failure.
	MaxRetries uint64
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration
	// MaxInterval caps a single retry delay.
	MaxInterval time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize:        100,
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}
