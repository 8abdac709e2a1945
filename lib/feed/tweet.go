package feed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Tweet struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TweetStore struct {
	db *sql.DB
}

func NewTweetStore(db *sql.DB) *TweetStore {
	return &TweetStore{db: db}
}

func (ts *TweetStore) Create(ctx context.Context, authorID int64, content string, createdAt time.Time) (Tweet, error) {
	result, err := ts.db.ExecContext(ctx,
		`INSERT INTO tweets (author_id, content, created_at) VALUES (?, ?, ?)`,
		authorID, content, createdAt.UnixNano(),
	)
	if err != nil {
		return Tweet{}, fmt.Errorf("create tweet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Tweet{}, fmt.Errorf("create tweet: %w", err)
	}
	return Tweet{
		ID:        id,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Unix(0, createdAt.UnixNano()).UTC(),
	}, nil
}

// GetByIDs fetches tweets keyed by id, for hydrating a page of feed entries.
func (ts *TweetStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]Tweet, error) {
	if len(ids) == 0 {
		return map[int64]Tweet{}, nil
	}

	inClause := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		inClause = append(inClause, "?")
		args = append(args, id)
	}

	rows, err := ts.db.QueryContext(ctx,
		`SELECT id, author_id, content, created_at FROM tweets WHERE id IN (`+strings.Join(inClause, ", ")+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get tweets: %w", err)
	}
	defer rows.Close()

	tweets := make(map[int64]Tweet, len(ids))
	for rows.Next() {
		var t Tweet
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.AuthorID, &t.Content, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(0, createdAt).UTC()
		tweets[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tweets, nil
}
