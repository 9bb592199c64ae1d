package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLite persists entries in a single table.
type SQLite struct {
	db     *sql.DB
	path   string
	policy TTLPolicy
	now    func() time.Time
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(path string, policy TTLPolicy) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: path, policy: policy, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string, typ Type) ([]byte, bool, error) {
	var (
		value   []byte
		expires sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE cache_type = ? AND key = ?",
		string(typ), key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache entry: %w", err)
	}
	if expires.Valid && s.now().UnixNano() >= expires.Int64 {
		if err := s.Delete(ctx, key, typ); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, typ Type, value []byte) error {
	var expires sql.NullInt64
	if ttl := s.policy.For(typ); ttl > 0 {
		expires = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (cache_type, key, value, expires_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(cache_type, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		string(typ), key, value, expires,
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string, typ Type) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_type = ? AND key = ?", string(typ), key,
	); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Purge removes expired rows and returns how many were deleted.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
