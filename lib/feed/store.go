package feed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ListQuery narrows and bounds a feed read. Before/After are exclusive
// cursor boundaries on CreatedAt. BeforeID, when set alongside Before,
// extends the boundary with the id tiebreak so that rows sharing the cursor
// timestamp but with a smaller id still qualify as older.
type ListQuery struct {
	Before   *time.Time
	BeforeID int64
	After    *time.Time
	Limit    int
}

// Store is the durable, append-only home of feed entries.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a single entry and returns it with its assigned id.
func (s *Store) Create(ctx context.Context, recipientID, contentID int64, createdAt time.Time) (Entry, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO newsfeeds (recipient_id, content_id, created_at) VALUES (?, ?, ?)`,
		recipientID, contentID, createdAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("create feed entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("create feed entry: %w", err)
	}
	if affected == 0 {
		// The (recipient, content) pair already exists, return that row.
		return s.getByRecipientContent(ctx, recipientID, contentID)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("create feed entry: %w", err)
	}
	return Entry{
		ID:          id,
		RecipientID: recipientID,
		ContentID:   contentID,
		CreatedAt:   time.Unix(0, createdAt.UnixNano()).UTC(),
	}, nil
}

// BulkCreate inserts one entry per recipient in a single statement and
// returns the created rows with ids. Pairs that already exist are skipped by
// the unique index, so replaying the same batch yields the same rows.
func (s *Store) BulkCreate(ctx context.Context, recipientIDs []int64, contentID int64, createdAt time.Time) ([]Entry, error) {
	if len(recipientIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(recipientIDs))
	args := make([]any, 0, len(recipientIDs)*3)
	for _, recipientID := range recipientIDs {
		placeholders = append(placeholders, "(?, ?, ?)")
		args = append(args, recipientID, contentID, createdAt.UnixNano())
	}

	query := `INSERT OR IGNORE INTO newsfeeds (recipient_id, content_id, created_at) VALUES ` +
		strings.Join(placeholders, ", ")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("bulk create feed entries: %w", err)
	}

	inClause := make([]string, 0, len(recipientIDs))
	selectArgs := make([]any, 0, len(recipientIDs)+1)
	selectArgs = append(selectArgs, contentID)
	for _, recipientID := range recipientIDs {
		inClause = append(inClause, "?")
		selectArgs = append(selectArgs, recipientID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, content_id, created_at FROM newsfeeds
		 WHERE content_id = ? AND recipient_id IN (`+strings.Join(inClause, ", ")+`) ORDER BY id`,
		selectArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("bulk create feed entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByRecipient returns the recipient's entries most-recent-first,
// ordered by created_at then id descending.
func (s *Store) ListByRecipient(ctx context.Context, recipientID int64, q ListQuery) ([]Entry, error) {
	query := `SELECT id, recipient_id, content_id, created_at FROM newsfeeds WHERE recipient_id = ?`
	args := []any{recipientID}

	if q.After != nil {
		query += ` AND created_at > ?`
		args = append(args, q.After.UnixNano())
	}
	if q.Before != nil {
		if q.BeforeID > 0 {
			query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
			args = append(args, q.Before.UnixNano(), q.Before.UnixNano(), q.BeforeID)
		} else {
			query += ` AND created_at < ?`
			args = append(args, q.Before.UnixNano())
		}
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feed entries of user %d: %w", recipientID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *Store) getByRecipientContent(ctx context.Context, recipientID, contentID int64) (Entry, error) {
	var e Entry
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, recipient_id, content_id, created_at FROM newsfeeds
		 WHERE recipient_id = ? AND content_id = ?`,
		recipientID, contentID,
	).Scan(&e.ID, &e.RecipientID, &e.ContentID, &createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("get feed entry: %w", err)
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.ContentID, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
