package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// RemoteStore is the folder tree that holds scores and their derivatives.
// Implementations handle transport, retries and rate limiting.
type RemoteStore interface {
	// GetFile returns current metadata for a file.
	// Returns domain.ErrNotFound if the file does not exist or is trashed.
	GetFile(ctx context.Context, id string) (domain.RemoteFile, error)

	// ListFolder returns the non-trashed children of a folder.
	// Returns domain.ErrIncompleteListing if the store cannot guarantee a complete listing.
	ListFolder(ctx context.Context, folderID string) ([]domain.RemoteFile, error)

	// Download writes the content of a file to w.
	Download(ctx context.Context, id string, w io.Writer) error

	// Create uploads localPath as a new file called name inside parentID.
	Create(ctx context.Context, name, parentID, localPath string) (domain.RemoteFile, error)

	// Update replaces the content of an existing file with localPath.
	Update(ctx context.Context, id, localPath string) (domain.RemoteFile, error)

	// Trash moves a file to the store's trash.
	Trash(ctx context.Context, id string) error

	// StartCursor returns a change cursor positioned at "now".
	StartCursor(ctx context.Context) (string, error)

	// ListChanges returns one page of the change feed starting at cursor.
	ListChanges(ctx context.Context, cursor string) (domain.ChangePage, error)
}
