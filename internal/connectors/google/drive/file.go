package drive

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// Partial response field sets.
const (
	fileFields   = "id, name, mimeType, parents, modifiedTime, size, trashed"
	listFields   = "nextPageToken, incompleteSearch, files(" + fileFields + ")"
	changeFields = "nextPageToken, newStartPageToken, changes(fileId, removed, file(trashed))"
)

// toRemoteFile converts a Drive file to the core's metadata type.
func toRemoteFile(file *drive.File) (domain.RemoteFile, error) {
	var modified time.Time
	if file.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339Nano, file.ModifiedTime)
		if err != nil {
			return domain.RemoteFile{}, fmt.Errorf("parse modifiedTime of %s: %w", file.Id, err)
		}
		modified = t
	}

	return domain.RemoteFile{
		ID:           file.Id,
		Name:         file.Name,
		MIMEType:     file.MimeType,
		Parents:      file.Parents,
		ModifiedTime: modified,
		Size:         file.Size,
	}, nil
}

// toChangeEvent converts a Drive change. Trashed files count as removed.
func toChangeEvent(change *drive.Change) domain.ChangeEvent {
	removed := change.Removed || (change.File != nil && change.File.Trashed)
	return domain.ChangeEvent{FileID: change.FileId, Removed: removed}
}

// childrenQuery lists the non-trashed children of a folder.
func childrenQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}
