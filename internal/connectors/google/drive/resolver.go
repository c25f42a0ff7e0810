package drive

import "github.com/custodia-labs/scoresync/internal/core/domain"

// WebURL returns the browser link for a Drive file or folder.
func WebURL(id, mimeType string) string {
	if id == "" {
		return ""
	}
	if mimeType == domain.MimeTypeFolder {
		return "https://drive.google.com/drive/folders/" + id
	}
	return "https://drive.google.com/file/d/" + id + "/view"
}
