package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// MIME types recognised when classifying remote files.
const (
	MimeTypeMuseScore = "application/x-musescore"
	MimeTypeXML       = "text/xml"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
	MimeTypePDF       = "application/pdf"
)

// File extensions for notation documents.
const (
	ExtCompressedScore = ".mscz"
	ExtScoreMarkup     = ".mscx"
)

// RemoteFile is the metadata the core needs about a file in remote storage.
type RemoteFile struct {
	// ID is the store-specific identifier.
	ID string

	// Name is the file name including extension.
	Name string

	// MIMEType is the content type reported by the store.
	MIMEType string

	// Parents lists the containing folder identifiers.
	Parents []string

	// ModifiedTime is the last modification time reported by the store.
	ModifiedTime time.Time

	// Size is the content length in bytes, when known.
	Size int64
}

// FileKind is the closed set of file variants the engine distinguishes.
// A file is classified once and call sites switch on the kind.
type FileKind int

const (
	// KindOther is unrelated user content.
	KindOther FileKind = iota

	// KindFolder is a container that is recursed during traversal.
	KindFolder

	// KindCompressedScore is a native compressed notation document.
	KindCompressedScore

	// KindScoreMarkup is a raw markup notation document.
	KindScoreMarkup

	// KindDerivative is a generated output file.
	KindDerivative
)

// String returns a short name for logging.
func (k FileKind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindCompressedScore:
		return "compressed-score"
	case KindScoreMarkup:
		return "score-markup"
	case KindDerivative:
		return "derivative"
	default:
		return "other"
	}
}

// IsScore returns true for both notation document variants.
func (k FileKind) IsScore() bool {
	return k == KindCompressedScore || k == KindScoreMarkup
}

// Classify resolves the kind of a remote file from its MIME type and name.
func Classify(f RemoteFile) FileKind {
	switch {
	case f.MIMEType == MimeTypeFolder:
		return KindFolder
	case f.MIMEType == MimeTypeMuseScore:
		return KindCompressedScore
	case f.Extension() == ExtScoreMarkup && f.MIMEType == MimeTypeXML:
		return KindScoreMarkup
	case IsDerivativeName(f.Name):
		return KindDerivative
	default:
		return KindOther
	}
}

// Kind is shorthand for Classify(f).
func (f RemoteFile) Kind() FileKind {
	return Classify(f)
}

// SongName returns the file name without its extension.
func (f RemoteFile) SongName() string {
	return strings.TrimSuffix(f.Name, path.Ext(f.Name))
}

// Extension returns the lower-cased file extension, including the dot.
func (f RemoteFile) Extension() string {
	return strings.ToLower(path.Ext(f.Name))
}

// WatchedFile is a remote score that the engine regenerates derivatives for.
type WatchedFile struct {
	// ID is the remote identifier.
	ID string

	// Name is the file name, used for logging.
	Name string

	// ContainerID is the single folder holding the file and its derivatives.
	ContainerID string
}

// NewWatchedFile validates that f is a score with exactly one parent.
func NewWatchedFile(f RemoteFile) (WatchedFile, error) {
	if !Classify(f).IsScore() {
		return WatchedFile{}, fmt.Errorf("file %s (%s): %w", f.ID, f.Name, ErrNotScore)
	}
	if len(f.Parents) != 1 {
		return WatchedFile{}, fmt.Errorf("file %s (%s) has %d parents: %w",
			f.ID, f.Name, len(f.Parents), ErrMultipleParents)
	}
	return WatchedFile{ID: f.ID, Name: f.Name, ContainerID: f.Parents[0]}, nil
}
