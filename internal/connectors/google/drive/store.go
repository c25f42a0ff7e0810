package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/scoresync/internal/connectors/google"
	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.RemoteStore = (*Store)(nil)

// Store is a RemoteStore backed by the Google Drive v3 API. Every request is
// rate limited and transient failures are retried with exponential backoff.
type Store struct {
	svc     *drive.Service
	limiter *google.RateLimiter
	cfg     *Config
}

// New creates a Drive store. A nil cfg uses DefaultConfig.
func New(svc *drive.Service, limiter *google.RateLimiter, cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if limiter == nil {
		limiter = google.NewRateLimiter()
	}
	return &Store{
		svc:     svc,
		limiter: limiter,
		cfg:     cfg,
	}
}

// GetFile returns current metadata for a file. Trashed files are reported as not found.
func (s *Store) GetFile(ctx context.Context, id string) (domain.RemoteFile, error) {
	var file *drive.File
	err := s.call(ctx, "get "+id, func() error {
		var err error
		file, err = s.svc.Files.Get(id).Fields(fileFields).Context(ctx).Do()
		return err
	})
	if err != nil {
		return domain.RemoteFile{}, err
	}
	if file.Trashed {
		return domain.RemoteFile{}, fmt.Errorf("file %s is trashed: %w", id, domain.ErrNotFound)
	}
	return toRemoteFile(file)
}

// ListFolder returns the non-trashed children of a folder, following pagination.
func (s *Store) ListFolder(ctx context.Context, folderID string) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile
	pageToken := ""
	for {
		var list *drive.FileList
		err := s.call(ctx, "list "+folderID, func() error {
			call := s.svc.Files.List().
				Q(childrenQuery(folderID)).
				Fields(listFields).
				PageSize(s.cfg.PageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}
		if list.IncompleteSearch {
			return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrIncompleteListing)
		}

		for _, f := range list.Files {
			rf, err := toRemoteFile(f)
			if err != nil {
				return nil, err
			}
			files = append(files, rf)
		}

		if list.NextPageToken == "" {
			return files, nil
		}
		pageToken = list.NextPageToken
	}
}

// Download writes the content of a file to w.
func (s *Store) Download(ctx context.Context, id string, w io.Writer) error {
	var body io.ReadCloser
	err := s.call(ctx, "download "+id, func() error {
		resp, err := s.svc.Files.Get(id).Context(ctx).Download()
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return err
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("read content of %s: %w", id, err)
	}
	logger.Debug("downloaded %s from drive", humanize.Bytes(uint64(n)))
	return nil
}

// Create uploads localPath as a new file called name inside parentID.
func (s *Store) Create(ctx context.Context, name, parentID, localPath string) (domain.RemoteFile, error) {
	meta := &drive.File{Name: name, Parents: []string{parentID}}
	return s.upload(ctx, "create "+name, localPath, func(r io.Reader) (*drive.File, error) {
		return s.svc.Files.Create(meta).
			Media(r, googleapi.ContentType(contentType(localPath))).
			Fields(fileFields).
			Context(ctx).
			Do()
	})
}

// Update replaces the content of an existing file with localPath.
func (s *Store) Update(ctx context.Context, id, localPath string) (domain.RemoteFile, error) {
	return s.upload(ctx, "update "+id, localPath, func(r io.Reader) (*drive.File, error) {
		return s.svc.Files.Update(id, &drive.File{}).
			Media(r, googleapi.ContentType(contentType(localPath))).
			Fields(fileFields).
			Context(ctx).
			Do()
	})
}

// Trash moves a file to the Drive trash.
func (s *Store) Trash(ctx context.Context, id string) error {
	return s.call(ctx, "trash "+id, func() error {
		_, err := s.svc.Files.Update(id, &drive.File{Trashed: true}).Fields("id").Context(ctx).Do()
		return err
	})
}

// StartCursor returns a cursor positioned at the current end of the change feed.
func (s *Store) StartCursor(ctx context.Context) (string, error) {
	var token *drive.StartPageToken
	err := s.call(ctx, "start page token", func() error {
		var err error
		token, err = s.svc.Changes.GetStartPageToken().Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return NewCursor(token.StartPageToken).Encode(), nil
}

// ListChanges returns one page of the change feed.
func (s *Store) ListChanges(ctx context.Context, cursor string) (domain.ChangePage, error) {
	c, err := DecodeCursor(cursor)
	if err != nil {
		return domain.ChangePage{}, err
	}

	var list *drive.ChangeList
	err = s.call(ctx, "list changes", func() error {
		var err error
		list, err = s.svc.Changes.List(c.PageToken).
			Spaces("drive").
			IncludeRemoved(true).
			PageSize(s.cfg.PageSize).
			Fields(changeFields).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return domain.ChangePage{}, err
	}

	page := domain.ChangePage{Changes: make([]domain.ChangeEvent, 0, len(list.Changes))}
	for _, change := range list.Changes {
		page.Changes = append(page.Changes, toChangeEvent(change))
	}
	if list.NextPageToken != "" {
		page.NextPageToken = NewCursor(list.NextPageToken).Encode()
	}
	if list.NewStartPageToken != "" {
		page.NewStartPageToken = NewCursor(list.NewStartPageToken).Encode()
	}
	return page, nil
}

// upload reopens localPath on every attempt so a retry resends the whole body.
func (s *Store) upload(ctx context.Context, op, localPath string, send func(io.Reader) (*drive.File, error)) (domain.RemoteFile, error) {
	var file *drive.File
	err := s.call(ctx, op, func() error {
		f, err := os.Open(localPath)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("open %s: %w", localPath, err))
		}
		defer f.Close()

		file, err = send(f)
		return err
	})
	if err != nil {
		return domain.RemoteFile{}, err
	}
	return toRemoteFile(file)
}

// call runs fn under the rate limiter, retrying transient Google errors.
func (s *Store) call(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := fn()
		switch {
		case err == nil:
			return nil
		case google.IsRateLimited(err):
			if seconds := google.RetryAfter(err); seconds > 0 {
				s.limiter.RecordRateLimitError(seconds)
			}
			logger.Debug("drive %s rate limited (attempt %d)", op, attempt)
			return err
		case google.IsRetryable(err):
			logger.Debug("drive %s failed (attempt %d): %v", op, attempt, err)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.cfg.MaxRetries), ctx)); err != nil {
		return fmt.Errorf("drive %s: %w", op, google.WrapError(err))
	}
	return nil
}

func (s *Store) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func contentType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return domain.MimeTypePDF
	}
	return "application/octet-stream"
}
