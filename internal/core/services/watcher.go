package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/ports/driving"
	"github.com/custodia-labs/scoresync/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driving.Watcher = (*Watcher)(nil)

// Watcher is the polling control loop. It is strictly sequential: one
// reconcile runs at a time, so a source is never built concurrently.
type Watcher struct {
	store    driven.RemoteStore
	regen    driving.Regenerator
	feed     driving.ChangeFeed
	rootID   string
	settings domain.WatchSettings

	watched map[string]domain.WatchedFile
	cycle   int
	wait    func(ctx context.Context, d time.Duration) error
}

// NewWatcher creates a watcher for the tree under rootID.
func NewWatcher(
	store driven.RemoteStore,
	regen driving.Regenerator,
	feed driving.ChangeFeed,
	rootID string,
	settings domain.WatchSettings,
) *Watcher {
	return &Watcher{
		store:    store,
		regen:    regen,
		feed:     feed,
		rootID:   rootID,
		settings: settings,
		watched:  make(map[string]domain.WatchedFile),
		wait:     sleep,
	}
}

// Run traverses the tree, then polls the change feed until ctx is cancelled.
// A full traversal is repeated every FullScanEvery cycles. Only format errors
// end the loop; everything else is logged and the file skipped.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Traverse(ctx); err != nil {
		return stopErr(ctx, err)
	}
	w.cycle = 1

	for {
		if err := w.RunCycle(ctx); err != nil {
			return stopErr(ctx, err)
		}
		if err := w.wait(ctx, w.settings.PollInterval); err != nil {
			return nil
		}
	}
}

// RunCycle runs one iteration: a traversal when due, then the pending changes.
func (w *Watcher) RunCycle(ctx context.Context) error {
	defer func() { w.cycle++ }()

	if w.settings.FullScanEvery > 0 && w.cycle > 0 && w.cycle%w.settings.FullScanEvery == 0 {
		if err := w.Traverse(ctx); err != nil {
			return err
		}
	}

	events, err := w.feed.GetChanges(ctx)
	if err != nil {
		switch {
		case domain.IsFormatError(err), ctx.Err() != nil:
			return err
		case errors.Is(err, domain.ErrCursorExpired):
			return w.Traverse(ctx)
		}
		logger.Warn("poll changes: %v", err)
		return nil
	}
	logger.Debug("cycle %d: %d changes, cursor %s", w.cycle, len(events), w.feed.Cursor())

	for _, event := range events {
		file, ok := w.watched[event.FileID]
		if !ok {
			continue
		}
		if event.Removed {
			logger.Info("no longer watching %s", file.Name)
			delete(w.watched, event.FileID)
			continue
		}
		if err := w.reconcile(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

// Traverse rebuilds the watch set from the root and reconciles every score in it.
func (w *Watcher) Traverse(ctx context.Context) error {
	logger.Section("Full traversal")

	files, err := w.scan(ctx)
	if err != nil {
		return err
	}

	watched := make(map[string]domain.WatchedFile, len(files))
	for _, f := range files {
		wf, err := domain.NewWatchedFile(f)
		if err != nil {
			logger.Warn("not watching %s: %v", f.Name, err)
			continue
		}
		watched[wf.ID] = wf
	}
	w.watched = watched
	logger.Info("watching %d scores", len(watched))

	for _, wf := range w.Watched() {
		if err := w.reconcile(ctx, wf); err != nil {
			return err
		}
	}
	return nil
}

// Watched returns the watch set ordered by name.
func (w *Watcher) Watched() []domain.WatchedFile {
	files := make([]domain.WatchedFile, 0, len(w.watched))
	for _, wf := range w.watched {
		files = append(files, wf)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name < files[j].Name
		}
		return files[i].ID < files[j].ID
	})
	return files
}

// scan walks the folder tree breadth first and returns every score found.
func (w *Watcher) scan(ctx context.Context) ([]domain.RemoteFile, error) {
	var scores []domain.RemoteFile
	queue := []string{w.rootID}
	visited := map[string]bool{w.rootID: true}

	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]

		children, err := w.store.ListFolder(ctx, folder)
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folder, err)
		}

		for _, child := range children {
			switch kind := child.Kind(); {
			case kind == domain.KindFolder:
				if !visited[child.ID] {
					visited[child.ID] = true
					queue = append(queue, child.ID)
				}
			case kind.IsScore():
				scores = append(scores, child)
			}
		}
	}
	return scores, nil
}

// reconcile runs one regeneration and decides whether its error ends the loop.
func (w *Watcher) reconcile(ctx context.Context, file domain.WatchedFile) error {
	_, err := w.regen.Reconcile(ctx, file.ID)
	switch {
	case err == nil:
		return nil
	case domain.IsFormatError(err), ctx.Err() != nil:
		return err
	case errors.Is(err, domain.ErrSourceRemoved):
		logger.Info("no longer watching %s", file.Name)
		delete(w.watched, file.ID)
	case domain.IsConsistencyError(err):
		logger.Warn("skipping %s: %v", file.Name, err)
	case domain.IsExternalError(err):
		logger.Error("renderer failed for %s: %v", file.Name, err)
	default:
		logger.Error("generating pdfs for %s: %v", file.Name, err)
	}
	return nil
}

// stopErr hides errors raised while shutting down.
func stopErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
