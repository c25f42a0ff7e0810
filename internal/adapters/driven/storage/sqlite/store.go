package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/scoresync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "state.db"

// Store is a unified SQLite-based storage that provides access to
// the state interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.scoresync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scoresync", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets `status` read while the watcher writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CursorStore returns a CursorStore interface backed by this store.
func (s *Store) CursorStore() driven.CursorStore {
	return &cursorStore{store: s}
}

// GenerationLog returns a GenerationLog interface backed by this store.
func (s *Store) GenerationLog() driven.GenerationLog {
	return &generationLog{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Cursor Store ====================

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// GetCursor returns the saved cursor, or "" if none exists.
func (c *cursorStore) GetCursor(ctx context.Context, rootID string) (string, error) {
	var cursor string
	err := c.store.db.QueryRowContext(ctx,
		"SELECT cursor FROM change_cursors WHERE root_id = ?", rootID).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor: %w", err)
	}
	return cursor, nil
}

// SaveCursor stores or replaces the cursor for rootID.
func (c *cursorStore) SaveCursor(ctx context.Context, rootID, cursor string) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO change_cursors (root_id, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(root_id) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`, rootID, cursor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// ==================== Generation Log ====================

// generationLog implements driven.GenerationLog.
type generationLog struct {
	store *Store
}

var _ driven.GenerationLog = (*generationLog)(nil)

const recordColumns = `id, source_id, source_name, outcome, derivatives, trashed, error, started_at, ended_at`

// Record appends a history entry.
func (g *generationLog) Record(ctx context.Context, r domain.GenerationRecord) error {
	_, err := g.store.db.ExecContext(ctx,
		`INSERT INTO generation_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceID, r.SourceName, string(r.Outcome), r.Derivatives, r.Trashed, r.Error,
		r.StartedAt.UTC(), r.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (g *generationLog) Recent(ctx context.Context, limit int) ([]domain.GenerationRecord, error) {
	rows, err := g.store.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM generation_records ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()

	var records []domain.GenerationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating generations: %w", err)
	}
	return records, nil
}

// LastForSource returns the newest entry for a source.
func (g *generationLog) LastForSource(ctx context.Context, sourceID string) (*domain.GenerationRecord, error) {
	row := g.store.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM generation_records WHERE source_id = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`, sourceID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.GenerationRecord, error) {
	var r domain.GenerationRecord
	var outcome string
	if err := row.Scan(&r.ID, &r.SourceID, &r.SourceName, &outcome, &r.Derivatives, &r.Trashed,
		&r.Error, &r.StartedAt, &r.EndedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning generation: %w", err)
	}
	r.Outcome = domain.GenerationOutcome(outcome)
	return &r, nil
}
