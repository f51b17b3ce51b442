package scorecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const dbFileName = "scores.db"

// Key identifies a scored cue pair. Scores are only reusable when the same
// backend and model judged the same pair of normalized texts, so all four
// fields participate in the lookup.
type Key struct {
	Backend       string
	Model         string
	SourceHash    string
	ReferenceHash string
}

// Entry is a score record as stored on disk.
type Entry struct {
	Key
	Score     float64
	CreatedAt time.Time
}

// Stats summarizes cache contents for the CLI.
type Stats struct {
	Path       string
	Entries    int64
	SizeBytes  int64
	PerBackend map[string]int64
}

// Health reports cache database diagnostics for preflight checks.
type Health struct {
	Path             string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	Entries          int64
	Error            string
}

// Store manages score persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	lockPath string
}

// Open initializes or connects to the score database under dir.
func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("score cache: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lockPath: dbPath + ".lock"}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get fetches a single cached score. The second return reports whether the
// pair was present.
func (s *Store) Get(ctx context.Context, key Key) (float64, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT score FROM scores WHERE backend = ? AND model = ? AND source_hash = ? AND reference_hash = ?`,
		key.Backend, key.Model, key.SourceHash, key.ReferenceHash,
	)
	var score float64
	err := row.Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get score: %w", err)
	}
	return score, true, nil
}

// Lookup fetches cached scores for a set of keys. Missing pairs are simply
// absent from the returned map.
func (s *Store) Lookup(ctx context.Context, keys []Key) (map[Key]float64, error) {
	found := make(map[Key]float64, len(keys))
	if len(keys) == 0 {
		return found, nil
	}
	stmt, err := s.db.PrepareContext(
		ctx,
		`SELECT score FROM scores WHERE backend = ? AND model = ? AND source_hash = ? AND reference_hash = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		var score float64
		err := stmt.QueryRowContext(ctx, key.Backend, key.Model, key.SourceHash, key.ReferenceHash).Scan(&score)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup score: %w", err)
		}
		found[key] = score
	}
	return found, nil
}

// Put upserts a batch of score entries in a single transaction.
func (s *Store) Put(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO scores (backend, model, source_hash, reference_hash, score, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (backend, model, source_hash, reference_hash)
         DO UPDATE SET score = excluded.score, created_at = excluded.created_at`,
	)
	if err != nil {
		return fmt.Errorf("prepare put: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		createdAt := entry.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(
			ctx,
			entry.Backend,
			entry.Model,
			entry.SourceHash,
			entry.ReferenceHash,
			entry.Score,
			createdAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	return nil
}

// Stats returns cache contents grouped by backend.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path, PerBackend: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx, `SELECT backend, COUNT(1) FROM scores GROUP BY backend`)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var backend string
		var count int64
		if err := rows.Scan(&backend, &count); err != nil {
			return stats, err
		}
		stats.PerBackend[backend] = count
		stats.Entries += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Clear removes every cached score. The maintenance lock keeps two processes
// from clearing and writing at the same time.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	unlock, err := s.acquireMaintenanceLock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scores`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes cached scores created before the cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	unlock, err := s.acquireMaintenanceLock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM scores WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// CheckHealth returns diagnostic information about the cache database.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: s.path}

	if s.path == "" {
		return health, errors.New("cache database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat cache database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("cache database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("cache database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping cache database: %w", err)
	}
	health.DatabaseReadable = true

	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM scores")
	if err := row.Scan(&health.Entries); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count cache entries: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) acquireMaintenanceLock() (func(), error) {
	lock := flock.New(s.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another subalign process is maintaining the cache")
	}
	return func() { _ = lock.Unlock() }, nil
}
