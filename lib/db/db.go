package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func Connect(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return conn, nil
}

// Migrate creates the tables the service owns. Timestamps are stored as unix
// nanoseconds so cursor comparisons stay numeric regardless of timezone.
func Migrate(ctx context.Context, conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tweets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_user_id INTEGER NOT NULL,
			to_user_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (from_user_id, to_user_id)
		)`,
		// UNIQUE (recipient_id, content_id) makes a redelivered fan-out batch
		// insert nothing instead of duplicating feed rows.
		`CREATE TABLE IF NOT EXISTS newsfeeds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient_id INTEGER NOT NULL,
			content_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (recipient_id, content_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_newsfeeds_recipient
			ON newsfeeds (recipient_id, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_to_user
			ON friendships (to_user_id)`,
	}

	for _, statement := range statements {
		if _, err := conn.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
