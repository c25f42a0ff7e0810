package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every domain error wraps exactly one of these so callers
// can decide between aborting, skipping a file or retrying.
var (
	// ErrFormat marks unsupported or corrupt input. Never retried.
	ErrFormat = errors.New("format error")

	// ErrConsistency marks a file whose state violates an invariant.
	// The offending file is skipped; the rest of the watch set continues.
	ErrConsistency = errors.New("consistency error")

	// ErrExternal marks a failure of the external renderer process.
	ErrExternal = errors.New("external process error")
)

// Format errors.
var (
	// ErrUnsupportedFormat indicates a file extension the score loader cannot read.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file type", ErrFormat)

	// ErrMissingMarkup indicates a compressed score without an embedded markup entry.
	ErrMissingMarkup = fmt.Errorf("%w: no markup entry in container", ErrFormat)

	// ErrAmbiguousMarkup indicates a compressed score with more than one markup entry.
	ErrAmbiguousMarkup = fmt.Errorf("%w: multiple markup entries in container", ErrFormat)

	// ErrMalformedMarkup indicates markup that does not parse as a score.
	ErrMalformedMarkup = fmt.Errorf("%w: malformed score markup", ErrFormat)

	// ErrIncompleteListing indicates the remote store could not list a folder completely.
	ErrIncompleteListing = fmt.Errorf("%w: incomplete folder listing", ErrFormat)
)

// Consistency errors.
var (
	// ErrMultipleParents indicates a source file that lives in more than one folder.
	ErrMultipleParents = fmt.Errorf("%w: file does not have exactly one parent", ErrConsistency)

	// ErrManualPartsMetadata indicates child scores without exactly one part name tag.
	ErrManualPartsMetadata = fmt.Errorf("%w: child score without part name", ErrConsistency)

	// ErrManualParts indicates an attempt to split a score that already has manual parts.
	ErrManualParts = fmt.Errorf("%w: score already has manual parts", ErrConsistency)

	// ErrStaffMismatch indicates staff definitions and instrument staff references disagree.
	ErrStaffMismatch = fmt.Errorf("%w: staff count mismatch", ErrConsistency)

	// ErrDuplicateDerivative indicates more than one file with a derivative's name in a folder.
	ErrDuplicateDerivative = fmt.Errorf("%w: duplicate derivative name", ErrConsistency)

	// ErrNotScore indicates a file that is not a notation document.
	ErrNotScore = fmt.Errorf("%w: not a score file", ErrConsistency)
)

// External process errors.
var (
	// ErrRendererNotFound indicates the configured renderer binary does not exist.
	ErrRendererNotFound = fmt.Errorf("%w: renderer binary not found", ErrExternal)

	// ErrRenderFailed indicates the renderer exited unsuccessfully.
	ErrRenderFailed = fmt.Errorf("%w: render failed", ErrExternal)
)

// Generic errors shared by the stores.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSourceRemoved indicates a watched score was deleted or trashed.
	ErrSourceRemoved = fmt.Errorf("%w: score no longer exists", ErrNotFound)

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthRequired indicates no usable OAuth token is available.
	ErrAuthRequired = errors.New("authentication required")

	// ErrCursorExpired indicates the store no longer accepts a change cursor.
	ErrCursorExpired = errors.New("change cursor expired")
)

// IsFormatError reports whether err belongs to the format class.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsConsistencyError reports whether err belongs to the consistency class.
func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrConsistency)
}

// IsExternalError reports whether err came from the external renderer.
func IsExternalError(err error) bool {
	return errors.Is(err, ErrExternal)
}
