package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// fakeStore is an in-memory RemoteStore with a controllable clock and change feed.
type fakeStore struct {
	mu       sync.Mutex
	files    map[string]domain.RemoteFile
	content  map[string][]byte
	clock    time.Time
	nextID   int
	trashed  []string
	trashErr error
	listErr  map[string]error
	getErr   map[string]error
	start    string
	pages    map[string]domain.ChangePage
	pageErr  map[string]error
	tokens   []string
	created  []string
	updated  []string
	listings int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:   make(map[string]domain.RemoteFile),
		content: make(map[string][]byte),
		clock:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		listErr: make(map[string]error),
		getErr:  make(map[string]error),
		pages:   make(map[string]domain.ChangePage),
		pageErr: make(map[string]error),
		start:   "start-1",
	}
}

// tick advances the clock by one minute and returns it.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *fakeStore) add(f domain.RemoteFile) domain.RemoteFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ModifiedTime.IsZero() {
		f.ModifiedTime = s.tick()
	}
	s.files[f.ID] = f
	return f
}

func (s *fakeStore) folder(id, name, parent string) domain.RemoteFile {
	return s.add(domain.RemoteFile{ID: id, Name: name, MIMEType: domain.MimeTypeFolder, Parents: []string{parent}})
}

func (s *fakeStore) scoreFile(id, name, parent string) domain.RemoteFile {
	return s.add(domain.RemoteFile{ID: id, Name: name, MIMEType: domain.MimeTypeMuseScore, Parents: []string{parent}})
}

func (s *fakeStore) derivative(id, name, parent string) domain.RemoteFile {
	return s.add(domain.RemoteFile{ID: id, Name: name, MIMEType: domain.MimeTypePDF, Parents: []string{parent}})
}

// touch marks a file as modified now.
func (s *fakeStore) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.files[id]
	f.ModifiedTime = s.tick()
	s.files[id] = f
}

func (s *fakeStore) names(parent string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, f := range s.files {
		if len(f.Parents) > 0 && f.Parents[0] == parent {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *fakeStore) GetFile(_ context.Context, id string) (domain.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[id]; err != nil {
		return domain.RemoteFile{}, err
	}
	f, ok := s.files[id]
	if !ok {
		return domain.RemoteFile{}, domain.ErrNotFound
	}
	return f, nil
}

func (s *fakeStore) ListFolder(_ context.Context, folderID string) ([]domain.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings++
	if err := s.listErr[folderID]; err != nil {
		return nil, err
	}
	var children []domain.RemoteFile
	for _, f := range s.files {
		for _, p := range f.Parents {
			if p == folderID {
				children = append(children, f)
				break
			}
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

func (s *fakeStore) Download(_ context.Context, id string, w io.Writer) error {
	s.mu.Lock()
	data := s.content[id]
	s.mu.Unlock()
	_, err := w.Write(data)
	return err
}

func (s *fakeStore) Create(_ context.Context, name, parentID, _ string) (domain.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f := domain.RemoteFile{
		ID:           fmt.Sprintf("new-%d", s.nextID),
		Name:         name,
		MIMEType:     domain.MimeTypePDF,
		Parents:      []string{parentID},
		ModifiedTime: s.tick(),
	}
	s.files[f.ID] = f
	s.created = append(s.created, name)
	return f, nil
}

func (s *fakeStore) Update(_ context.Context, id, _ string) (domain.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return domain.RemoteFile{}, domain.ErrNotFound
	}
	f.ModifiedTime = s.tick()
	s.files[id] = f
	s.updated = append(s.updated, f.Name)
	return f, nil
}

func (s *fakeStore) Trash(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trashErr != nil {
		return s.trashErr
	}
	delete(s.files, id)
	s.trashed = append(s.trashed, id)
	return nil
}

func (s *fakeStore) StartCursor(_ context.Context) (string, error) {
	return s.start, nil
}

func (s *fakeStore) ListChanges(_ context.Context, cursor string) (domain.ChangePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, cursor)
	if err := s.pageErr[cursor]; err != nil {
		return domain.ChangePage{}, err
	}
	if page, ok := s.pages[cursor]; ok {
		return page, nil
	}
	return domain.ChangePage{NewStartPageToken: cursor}, nil
}

// fakeRenderer writes a placeholder PDF for every conversion and remembers the calls.
type fakeRenderer struct {
	calls      []renderCall
	batchCalls [][]string
	batchParts []string
	err        error
}

type renderCall struct {
	input, output string
	style         *driven.StyleOverrides
}

func (r *fakeRenderer) Convert(_ context.Context, input, output string, style *driven.StyleOverrides) error {
	var copied *driven.StyleOverrides
	if style != nil {
		s := *style
		copied = &s
	}
	r.calls = append(r.calls, renderCall{input: input, output: output, style: copied})
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(output, []byte("%PDF-1.4"), 0o600)
}

func (r *fakeRenderer) ConvertWithParts(_ context.Context, input, mainOutput, partPrefix, partSuffix string) error {
	r.batchCalls = append(r.batchCalls, []string{input, mainOutput, partPrefix, partSuffix})
	if r.err != nil {
		return r.err
	}
	if err := os.WriteFile(mainOutput, []byte("%PDF-1.4"), 0o600); err != nil {
		return err
	}
	for _, part := range r.batchParts {
		if err := os.WriteFile(partPrefix+part+partSuffix, []byte("%PDF-1.4"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// fakePages reports a page count chosen from the spacing of the most recent render.
type fakePages struct {
	renderer *fakeRenderer
	bySpace  func(spacing float64) int
	err      error
}

func (p *fakePages) PageCount(string) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	last := p.renderer.calls[len(p.renderer.calls)-1]
	if last.style == nil || p.bySpace == nil {
		return 1, nil
	}
	return p.bySpace(last.style.Spacing), nil
}

// fakeConverter writes fixed output names for the song into outDir.
type fakeConverter struct {
	parts   []string
	err     error
	sources []string
}

func (c *fakeConverter) Convert(_ context.Context, sourcePath, outDir string) ([]string, error) {
	c.sources = append(c.sources, sourcePath)
	if c.err != nil {
		return nil, c.err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	song := songName(sourcePath)
	names := []string{domain.ScoreDerivativeName(song)}
	for _, part := range c.parts {
		names = append(names, domain.PartDerivativeName(song, part))
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *fakeConverter) Split(context.Context, string, string) ([]string, error) {
	return nil, nil
}

// fakeRegenerator records reconcile calls and returns preset errors.
type fakeRegenerator struct {
	calls []string
	errs  map[string]error
}

func (r *fakeRegenerator) Reconcile(_ context.Context, fileID string) (*domain.GenerationResult, error) {
	r.calls = append(r.calls, fileID)
	if err := r.errs[fileID]; err != nil {
		return &domain.GenerationResult{SourceID: fileID}, err
	}
	return &domain.GenerationResult{SourceID: fileID, Outcome: domain.OutcomeGenerated}, nil
}

// fakeFeed returns queued batches of events.
type fakeFeed struct {
	batches [][]domain.ChangeEvent
	err     error
	calls   int
}

func (f *fakeFeed) Cursor() string {
	return fmt.Sprintf("cycle-%d", f.calls)
}

func (f *fakeFeed) GetChanges(context.Context) ([]domain.ChangeEvent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}
