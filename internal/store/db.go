// Package store persists conversations, messages, credentials and model
// descriptors in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DB owns the connection pool and exposes one store per table.
type DB struct {
	sql *sql.DB

	Conversations *ConversationStore
	Messages      *MessageStore
	Credentials   *CredentialStore
	Models        *ModelStore
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	now func() int64
}

// WithClock replaces the millisecond clock used for created_at and updated_at.
func WithClock(now func() int64) Option {
	return func(o *openOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Open creates the parent directory if needed, opens the database, applies
// pending migrations and seeds the default models on first run.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	o := openOptions{now: func() int64 { return time.Now().UnixMilli() }}
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	s := &DB{
		sql:           db,
		Conversations: &ConversationStore{db: db, now: o.now},
		Messages:      &MessageStore{db: db, now: o.now},
		Credentials:   &CredentialStore{db: db, now: o.now},
		Models:        &ModelStore{db: db, now: o.now},
	}

	if err := s.Models.seedDefaults(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed default models: %w", err)
	}

	return s, nil
}

// Ping checks that the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	return s.sql.PingContext(ctx)
}

// Close releases the connection pool.
func (s *DB) Close() error {
	return s.sql.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound wraps domain.ErrNotFound with the entity name and id.
func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, domain.ErrNotFound)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
