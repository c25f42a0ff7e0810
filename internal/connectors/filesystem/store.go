// Package filesystem provides a RemoteStore over a local directory tree, so
// a synced folder or a scratch directory can be watched like a Drive root.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.RemoteStore = (*Store)(nil)

// RootID is the identifier of the store's root directory.
const RootID = "."

// trashDir holds trashed files. It is hidden, so listings never see it.
const trashDir = ".trash"

// Store is a RemoteStore backed by a local directory. File identifiers are
// slash-separated paths relative to the root. Changes are journalled from
// filesystem notifications once Watch has been called.
type Store struct {
	root string

	mu       sync.Mutex
	journal  *journal
	watcher  *fsnotify.Watcher
	pageSize int
}

// New creates a store rooted at root.
func New(root string) *Store {
	return &Store{
		root:     root,
		journal:  newJournal(defaultJournalSize),
		pageSize: 100,
	}
}

// Root returns the directory the store serves.
func (s *Store) Root() string {
	return s.root
}

// GetFile returns metadata for the file at id.
func (s *Store) GetFile(_ context.Context, id string) (domain.RemoteFile, error) {
	if isHidden(id) {
		return domain.RemoteFile{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	info, err := os.Stat(s.abs(id))
	if err != nil {
		return domain.RemoteFile{}, statError(id, err)
	}
	return s.toRemoteFile(cleanID(id), info), nil
}

// ListFolder returns the visible entries of the directory at folderID.
func (s *Store) ListFolder(_ context.Context, folderID string) ([]domain.RemoteFile, error) {
	entries, err := os.ReadDir(s.abs(folderID))
	if err != nil {
		return nil, statError(folderID, err)
	}

	files := make([]domain.RemoteFile, 0, len(entries))
	for _, entry := range entries {
		if isHidden(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, s.toRemoteFile(path.Join(cleanID(folderID), entry.Name()), info))
	}
	return files, nil
}

// Download copies the content of id to w.
func (s *Store) Download(_ context.Context, id string, w io.Writer) error {
	f, err := os.Open(s.abs(id))
	if err != nil {
		return statError(id, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read %s: %w", id, err)
	}
	return nil
}

// Create copies localPath to name inside parentID.
func (s *Store) Create(ctx context.Context, name, parentID, localPath string) (domain.RemoteFile, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return domain.RemoteFile{}, fmt.Errorf("file name %q: %w", name, domain.ErrInvalidInput)
	}
	id := path.Join(cleanID(parentID), name)
	if err := copyFile(localPath, s.abs(id)); err != nil {
		return domain.RemoteFile{}, err
	}
	return s.GetFile(ctx, id)
}

// Update replaces the content of id with localPath.
func (s *Store) Update(ctx context.Context, id, localPath string) (domain.RemoteFile, error) {
	if _, err := os.Stat(s.abs(id)); err != nil {
		return domain.RemoteFile{}, statError(id, err)
	}
	if err := copyFile(localPath, s.abs(id)); err != nil {
		return domain.RemoteFile{}, err
	}
	return s.GetFile(ctx, id)
}

// Trash moves id into the hidden trash directory under the root.
func (s *Store) Trash(_ context.Context, id string) error {
	dir := filepath.Join(s.root, trashDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trash: %w", err)
	}

	target := filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), path.Base(id)))
	if err := os.Rename(s.abs(id), target); err != nil {
		return statError(id, err)
	}
	return nil
}

// StartCursor returns a cursor at the end of the change journal.
func (s *Store) StartCursor(_ context.Context) (string, error) {
	return s.journal.end().String(), nil
}

// ListChanges returns journalled events after cursor.
func (s *Store) ListChanges(_ context.Context, cursor string) (domain.ChangePage, error) {
	pos, err := parsePosition(cursor)
	if err != nil {
		return domain.ChangePage{}, err
	}

	events, next, err := s.journal.read(pos, s.pageSize)
	if err != nil {
		return domain.ChangePage{}, err
	}

	page := domain.ChangePage{Changes: events}
	if next.seq < s.journal.end().seq {
		page.NextPageToken = next.String()
	} else {
		page.NewStartPageToken = next.String()
	}
	return page, nil
}

// Watch starts journalling filesystem notifications for the whole tree.
// It returns once the watches are installed; events are processed until
// ctx is cancelled or Close is called.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.root, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go s.watchLoop(ctx, watcher)
	return nil
}

// Close stops watching.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if change, ok := s.handleFsEvent(watcher, event); ok {
				s.journal.append(change)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.journal.reset()
			}
			logger.Warn("filesystem watch: %v", err)
		}
	}
}

// handleFsEvent converts a notification to a change event. New directories
// are added to the watch list and produce no event of their own.
func (s *Store) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) (domain.ChangeEvent, bool) {
	rel, err := filepath.Rel(s.root, event.Name)
	if err != nil || isHidden(rel) {
		return domain.ChangeEvent{}, false
	}
	id := filepath.ToSlash(rel)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.ChangeEvent{FileID: id, Removed: true}, true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return domain.ChangeEvent{}, false
		}
		if info.IsDir() {
			if watcher != nil {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("watch new directory %s: %v", id, err)
				}
			}
			return domain.ChangeEvent{}, false
		}
		return domain.ChangeEvent{FileID: id}, true
	default:
		return domain.ChangeEvent{}, false
	}
}

func (s *Store) abs(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(cleanID(id)))
}

func (s *Store) toRemoteFile(id string, info fs.FileInfo) domain.RemoteFile {
	f := domain.RemoteFile{
		ID:           id,
		Name:         info.Name(),
		ModifiedTime: info.ModTime(),
		Size:         info.Size(),
		Parents:      []string{parentOf(id)},
	}
	if id == RootID {
		f.Parents = nil
	}
	if info.IsDir() {
		f.MIMEType = domain.MimeTypeFolder
		f.Size = 0
	} else {
		f.MIMEType = detectMIMEType(info.Name())
	}
	return f
}

// cleanID normalises an identifier so the root is always ".".
func cleanID(id string) string {
	cleaned := path.Clean("/" + filepath.ToSlash(id))
	if cleaned == "/" {
		return RootID
	}
	return strings.TrimPrefix(cleaned, "/")
}

func parentOf(id string) string {
	dir := path.Dir(id)
	if dir == "" {
		return RootID
	}
	return dir
}

// detectMIMEType maps a file name to a MIME type, with the score types the
// engine classifies by taking precedence over the system table.
func detectMIMEType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case domain.ExtCompressedScore:
		return domain.MimeTypeMuseScore
	case domain.ExtScoreMarkup:
		return domain.MimeTypeXML
	case ".pdf":
		return domain.MimeTypePDF
	case "":
		return "application/octet-stream"
	default:
		mimeType := mime.TypeByExtension(ext)
		if mimeType == "" {
			return "application/octet-stream"
		}
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = strings.TrimSpace(mimeType[:i])
		}
		return mimeType
	}
}

// isHidden reports whether any element of p starts with a dot. "." and ".." are not hidden.
func isHidden(p string) bool {
	for _, part := range strings.FieldsFunc(filepath.ToSlash(p), func(r rune) bool { return r == '/' }) {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func statError(id string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", id, err)
}

// copyFile writes src to dst through a temporary file so readers never see a partial copy.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}
