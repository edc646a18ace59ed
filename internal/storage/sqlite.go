package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"feedrelay/internal/model"
	"feedrelay/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

var _ Storage = (*SQLite)(nil)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied migration version.
// It doubles as a liveness probe of the database.
func (s *SQLite) SchemaVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, s.db)
}

// CreateAccount inserts a new account and populates its CreatedAt.
// It returns ErrAccountExists if the identity is already registered.
func (s *SQLite) CreateAccount(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (identity, password_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO NOTHING`,
		a.Identity, a.PasswordHash, now,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountExists
	}
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetAccount returns the account registered under identity.
func (s *SQLite) GetAccount(ctx context.Context, identity string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identity, password_hash, created_at FROM accounts WHERE identity = ?`, identity,
	)
	var a model.Account
	var created string
	if err := row.Scan(&a.Identity, &a.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}

// AccountExists checks whether identity is registered.
func (s *SQLite) AccountExists(ctx context.Context, identity string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE identity = ?`, identity,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return count > 0, nil
}

// LoadIgnoreList returns the stored patterns of identity in order.
func (s *SQLite) LoadIgnoreList(ctx context.Context, identity string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern FROM ignore_patterns WHERE identity = ? ORDER BY position`, identity,
	)
	if err != nil {
		return nil, fmt.Errorf("query ignore patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan ignore pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// SaveIgnoreList replaces the stored patterns of identity.
func (s *SQLite) SaveIgnoreList(ctx context.Context, identity string, patterns []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ignore_patterns WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("delete ignore patterns: %w", err)
	}
	for i, p := range patterns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ignore_patterns (identity, position, pattern) VALUES (?, ?, ?)`,
			identity, i, p,
		); err != nil {
			return fmt.Errorf("insert ignore pattern: %w", err)
		}
	}
	return tx.Commit()
}
