package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/scoresync/internal/adapters/driven/auth"
	"github.com/custodia-labs/scoresync/internal/adapters/driven/musescore"
	"github.com/custodia-labs/scoresync/internal/adapters/driven/pdf"
	"github.com/custodia-labs/scoresync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/scoresync/internal/connectors/filesystem"
	"github.com/custodia-labs/scoresync/internal/connectors/google"
	"github.com/custodia-labs/scoresync/internal/connectors/google/drive"
	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
	"github.com/custodia-labs/scoresync/internal/core/services"
	"github.com/custodia-labs/scoresync/internal/logger"
)

const lockFile = "scoresync.lock"

// stateStore persists the change cursor and the generation history.
type stateStore interface {
	CursorStore() driven.CursorStore
	GenerationLog() driven.GenerationLog
	Close() error
}

// remote is an opened RemoteStore together with the id of its root folder.
type remote struct {
	store  driven.RemoteStore
	rootID string
	close  func() error
}

// Constructors for everything that reaches outside the process.
// Tests replace them.
var (
	newRenderer = func(s domain.RendererSettings) (driven.Renderer, error) {
		return musescore.New(s)
	}
	newPageCounter = func() driven.PageCounter {
		return pdf.NewPageCounter()
	}
	openRemote = openRemoteStore
	openState  = func(dataDir string) (stateStore, error) {
		return sqlite.NewStore(dataDir)
	}
)

// loadSettings reads settings and, when full is set, validates them for a
// command that renders.
func loadSettings(full bool) (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if full {
		if err := settingsService.Validate(settings); err != nil {
			return nil, fmt.Errorf("invalid settings in %s: %w", configStore.Path(), err)
		}
	}
	return settings, nil
}

func newConverter(settings *domain.AppSettings) (*services.ScoreConverter, error) {
	renderer, err := newRenderer(settings.Renderer)
	if err != nil {
		return nil, err
	}
	layout := services.NewLayoutSearch(renderer, newPageCounter(), settings.Layout)
	return services.NewScoreConverter(renderer, layout), nil
}

func newTokenProvider(g domain.GoogleSettings) (*auth.TokenFile, error) {
	config, err := auth.LoadClientConfig(g.CredentialsFile, google.Scopes...)
	if err != nil {
		return nil, err
	}
	return auth.NewTokenFile(g.TokenFile, config), nil
}

func openRemoteStore(ctx context.Context, settings *domain.AppSettings) (*remote, error) {
	if settings.Store.Root == "" {
		return nil, fmt.Errorf("%w: store.root is not set", domain.ErrInvalidInput)
	}

	switch settings.Store.Kind {
	case domain.StoreLocal:
		fs := filesystem.New(settings.Store.Root)
		if err := fs.Watch(ctx); err != nil {
			return nil, err
		}
		return &remote{store: fs, rootID: filesystem.RootID, close: fs.Close}, nil

	case domain.StoreDrive:
		provider, err := newTokenProvider(settings.Google)
		if err != nil {
			return nil, err
		}
		if !provider.IsAuthenticated() {
			return nil, fmt.Errorf("run 'scoresync auth login' first: %w", domain.ErrAuthRequired)
		}

		svc, err := google.NewDriveService(ctx, google.NewTokenSource(ctx, provider))
		if err != nil {
			return nil, fmt.Errorf("create drive service: %w", err)
		}
		limiter := google.NewRateLimiterWithConfig(google.RateLimitConfig{
			RequestsPerSecond: settings.Google.RequestsPerSecond,
			BurstSize:         settings.Google.Burst,
		})
		return &remote{
			store:  drive.New(svc, limiter, nil),
			rootID: settings.Store.Root,
			close:  func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown store kind %q", domain.ErrInvalidInput, settings.Store.Kind)
	}
}

// engine is the fully wired regeneration pipeline.
type engine struct {
	lock    *flock.Flock
	remote  *remote
	state   stateStore
	regen   *services.Regenerator
	feed    *services.ChangeFeed
	watcher *services.Watcher
}

func buildEngine(ctx context.Context, settings *domain.AppSettings) (*engine, error) {
	converter, err := newConverter(settings)
	if err != nil {
		return nil, err
	}

	state, err := openState(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	rem, err := openRemote(ctx, settings)
	if err != nil {
		state.Close()
		return nil, err
	}

	regen := services.NewRegenerator(rem.store, converter, state.GenerationLog())
	feed := services.NewChangeFeed(rem.store, state.CursorStore(), rem.rootID)
	return &engine{
		remote:  rem,
		state:   state,
		regen:   regen,
		feed:    feed,
		watcher: services.NewWatcher(rem.store, regen, feed, rem.rootID, settings.Watch),
	}, nil
}

// openEngine takes the data directory lock and builds the pipeline.
// Close releases both.
func openEngine(ctx context.Context, settings *domain.AppSettings) (*engine, error) {
	lock, err := acquireLock(settings.DataDir)
	if err != nil {
		return nil, err
	}
	eng, err := buildEngine(ctx, settings)
	if err != nil {
		lock.Unlock() //nolint:errcheck // best effort
		return nil, err
	}
	eng.lock = lock
	return eng, nil
}

func (e *engine) Close() error {
	err := errors.Join(e.remote.close(), e.state.Close())
	if e.lock != nil {
		err = errors.Join(err, e.lock.Unlock())
	}
	return err
}

// acquireLock takes the data directory lock so only one process reconciles at a time.
func acquireLock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(dataDir, lockFile)
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another scoresync process holds %s", path)
	}
	logger.Debug("acquired %s", path)
	return lock, nil
}
