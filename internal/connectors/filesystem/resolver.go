package filesystem

import (
	"path/filepath"
	"strings"
)

// ResolvePath converts a store identifier to a local path for opening.
// file:// URIs and absolute paths pass through unchanged.
func ResolvePath(root, id string) string {
	if strings.HasPrefix(id, "file://") {
		return strings.TrimPrefix(id, "file://")
	}
	if filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(root, filepath.FromSlash(cleanID(id)))
}
