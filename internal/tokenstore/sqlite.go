package tokenstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pendingSuffix is appended to the store key for the pending request row.
const pendingSuffix = ":pending"

const (
	sqlGet    = `SELECT value FROM kv WHERE key = ?`
	sqlDelete = `DELETE FROM kv WHERE key = ?`
	sqlUpsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`
)

// SQLiteStore keeps the token set and the pending request as JSON values in
// a single key-value table.
type SQLiteStore struct {
	db      *sql.DB
	key     string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dbPath and applies
// pending migrations.
func OpenSQLite(ctx context.Context, dbPath, key string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: opening database %s: %w", dbPath, err)
	}

	// Single mutable slot; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, key: key, logger: logger, nowFunc: time.Now}, nil
}

// runMigrations applies all pending schema migrations using the goose
// Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("tokenstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("tokenstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("tokenstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load() (*TokenSet, error) {
	var ts TokenSet

	found, err := s.get(s.db, s.key, &ts)
	if err != nil || !found {
		return nil, err
	}

	return &ts, nil
}

func (s *SQLiteStore) Save(ts *TokenSet) error {
	return s.put(s.key, ts)
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(sqlDelete, s.key); err != nil {
		return fmt.Errorf("tokenstore: clearing token: %w", err)
	}

	return nil
}

func (s *SQLiteStore) PutPending(p *PendingAuth) error {
	return s.put(s.key+pendingSuffix, p)
}

// TakePending reads and deletes the pending row in one transaction.
func (s *SQLiteStore) TakePending() (*PendingAuth, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	key := s.key + pendingSuffix

	var p PendingAuth

	found, err := s.get(tx, key, &p)
	if err != nil || !found {
		return nil, err
	}

	if _, err := tx.Exec(sqlDelete, key); err != nil {
		return nil, fmt.Errorf("tokenstore: deleting pending request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tokenstore: committing: %w", err)
	}

	return &p, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(q queryer, key string, dst any) (bool, error) {
	var raw string

	err := q.QueryRow(sqlGet, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenstore: reading %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("tokenstore: decoding %q: %w", key, err)
	}

	return true, nil
}

func (s *SQLiteStore) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tokenstore: encoding %q: %w", key, err)
	}

	if _, err := s.db.Exec(sqlUpsert, key, string(data), s.nowFunc().Unix()); err != nil {
		return fmt.Errorf("tokenstore: writing %q: %w", key, err)
	}

	return nil
}
