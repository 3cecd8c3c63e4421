package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	sqlLoadSession = `SELECT data FROM sessions WHERE id = ? AND expires_at > ?`

	sqlUpsertSession = `INSERT INTO sessions (id, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 data = excluded.data,
		 expires_at = excluded.expires_at,
		 updated_at = excluded.updated_at`

	sqlDeleteSession = `DELETE FROM sessions WHERE id = ?`

	sqlSweepSessions = `DELETE FROM sessions WHERE expires_at <= ?`
)

// SQLiteStore keeps sessions in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending schema migrations.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session: creating database directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("session database ready", slog.String("db_path", path))

	return &SQLiteStore{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations to the database.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("session: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("session: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("session: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string, now time.Time) ([]byte, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, sqlLoadSession, key, now.Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("session: querying session: %w", err)
	}

	return data, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, sqlUpsertSession, key, data, expiresAt.Unix(), time.Now().Unix()); err != nil {
		return fmt.Errorf("session: upserting session: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteSession, key); err != nil {
		return fmt.Errorf("session: deleting session: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, sqlSweepSessions, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("session: sweeping sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: counting swept sessions: %w", err)
	}

	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
