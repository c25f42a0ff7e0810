package tui

import "errors"

// ErrMissingLoader is returned when the monitor has no snapshot loader.
var ErrMissingLoader = errors.New("tui: snapshot loader is required")
