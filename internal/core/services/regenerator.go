package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure Regenerator implements the interface.
var _ driving.Regenerator = (*Regenerator)(nil)

// Regenerator reconciles the derivative set of one score at a time.
type Regenerator struct {
	store     driven.RemoteStore
	converter driving.ScoreConverter
	history   driven.GenerationLog
	now       func() time.Time
}

// NewRegenerator creates a regenerator. history may be nil.
func NewRegenerator(store driven.RemoteStore, converter driving.ScoreConverter, history driven.GenerationLog) *Regenerator {
	return &Regenerator{
		store:     store,
		converter: converter,
		history:   history,
		now:       time.Now,
	}
}

// Reconcile brings the derivatives of fileID up to date.
//
// Derivatives are considered current when at least one exists and the source
// was modified before the oldest of them. Otherwise the source is rendered,
// every output is created or updated by name, and derivatives of the same
// song that were not written in this pass are trashed.
func (r *Regenerator) Reconcile(ctx context.Context, fileID string) (*domain.GenerationResult, error) {
	started := r.now()
	result := &domain.GenerationResult{SourceID: fileID}

	err := r.reconcile(ctx, fileID, result)
	switch {
	case err == nil:
	case domain.IsConsistencyError(err):
		result.Outcome = domain.OutcomeSkipped
	default:
		result.Outcome = domain.OutcomeFailed
	}
	r.record(ctx, result, started, err)

	if err != nil {
		return result, err
	}
	return result, nil
}

func (r *Regenerator) reconcile(ctx context.Context, fileID string, result *domain.GenerationResult) error {
	file, err := r.store.GetFile(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get file %s: %w", fileID, domain.ErrSourceRemoved)
	}
	if err != nil {
		return fmt.Errorf("get file %s: %w", fileID, err)
	}
	result.SourceName = file.Name

	watched, err := domain.NewWatchedFile(file)
	if err != nil {
		return err
	}

	siblings, err := r.store.ListFolder(ctx, watched.ContainerID)
	if err != nil {
		return fmt.Errorf("list folder of %s: %w", file.Name, err)
	}

	song := file.SongName()
	existing := derivativesOf(song, siblings)
	if upToDate(file, existing) {
		logger.Info("pdfs up to date for %s", file.Name)
		result.Outcome = domain.OutcomeUpToDate
		return nil
	}

	logger.Info("need to update pdfs for %s", file.Name)

	work, err := os.MkdirTemp("", "scoresync-*")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(work)

	source, err := r.download(ctx, file, work)
	if err != nil {
		return err
	}

	outputs, err := r.converter.Convert(ctx, source, filepath.Join(work, "out"))
	if err != nil {
		return fmt.Errorf("convert %s: %w", file.Name, err)
	}

	for _, output := range outputs {
		if err := r.upload(ctx, output, watched.ContainerID, siblings, result); err != nil {
			return err
		}
	}

	touched := make(map[string]bool)
	for _, id := range result.Touched() {
		touched[id] = true
	}
	for _, d := range existing {
		if touched[d.ID] {
			continue
		}
		logger.Info("trashing orphaned derivative %s", d.Name)
		if err := r.store.Trash(ctx, d.ID); err != nil {
			return fmt.Errorf("trash %s: %w", d.Name, err)
		}
		result.Trashed = append(result.Trashed, d.ID)
	}

	result.Outcome = domain.OutcomeGenerated
	return nil
}

// download copies the source into dir under its own name so the song name survives.
func (r *Regenerator) download(ctx context.Context, file domain.RemoteFile, dir string) (string, error) {
	path := filepath.Join(dir, safeFileName(file.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}

	if err := r.store.Download(ctx, file.ID, f); err != nil {
		f.Close()
		return "", fmt.Errorf("download %s: %w", file.Name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close download file: %w", err)
	}

	logger.Debug("downloaded %s (%s)", file.Name, humanize.Bytes(uint64(max(file.Size, 0))))
	return path, nil
}

// upload creates the derivative or updates the single same-named file in place.
func (r *Regenerator) upload(ctx context.Context, path, folderID string, siblings []domain.RemoteFile, result *domain.GenerationResult) error {
	name := filepath.Base(path)

	var matches []domain.RemoteFile
	for _, f := range siblings {
		if f.Name == name {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		created, err := r.store.Create(ctx, name, folderID, path)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		logger.Info("created %s", name)
		result.Created = append(result.Created, created.ID)
	case 1:
		updated, err := r.store.Update(ctx, matches[0].ID, path)
		if err != nil {
			return fmt.Errorf("update %s: %w", name, err)
		}
		logger.Info("updated %s", name)
		result.Updated = append(result.Updated, updated.ID)
	default:
		return fmt.Errorf("%d files named %s: %w", len(matches), name, domain.ErrDuplicateDerivative)
	}
	return nil
}

func (r *Regenerator) record(ctx context.Context, result *domain.GenerationResult, started time.Time, err error) {
	if r.history == nil {
		return
	}

	record := domain.GenerationRecord{
		ID:          uuid.New().String(),
		SourceID:    result.SourceID,
		SourceName:  result.SourceName,
		Outcome:     result.Outcome,
		Derivatives: len(result.Created) + len(result.Updated),
		Trashed:     len(result.Trashed),
		StartedAt:   started,
		EndedAt:     r.now(),
	}
	if err != nil {
		record.Error = err.Error()
	}

	if recErr := r.history.Record(ctx, record); recErr != nil && !errors.Is(recErr, context.Canceled) {
		logger.Warn("record generation history: %v", recErr)
	}
}

// derivativesOf returns the generated files of song among siblings. A file
// whose name also matches a longer sibling score belongs to that score.
func derivativesOf(song string, siblings []domain.RemoteFile) []domain.RemoteFile {
	songs := []string{song}
	for _, f := range siblings {
		if f.Kind().IsScore() {
			songs = append(songs, f.SongName())
		}
	}

	var derivatives []domain.RemoteFile
	for _, f := range siblings {
		if f.Kind() == domain.KindDerivative && domain.OwningSong(songs, f.Name) == song {
			derivatives = append(derivatives, f)
		}
	}
	return derivatives
}

// upToDate reports whether the source predates every existing derivative.
func upToDate(source domain.RemoteFile, derivatives []domain.RemoteFile) bool {
	if len(derivatives) == 0 {
		return false
	}

	earliest := derivatives[0].ModifiedTime
	for _, d := range derivatives[1:] {
		if d.ModifiedTime.Before(earliest) {
			earliest = d.ModifiedTime
		}
	}
	return source.ModifiedTime.Before(earliest)
}
