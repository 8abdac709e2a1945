package feed

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FollowerDirectory answers "who follows this user". The fan-out scheduler
// only consumes this; any backing store works.
type FollowerDirectory interface {
	GetAllFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type FriendshipStore struct {
	db *sql.DB
}

func NewFriendshipStore(db *sql.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

func (fs *FriendshipStore) Follow(ctx context.Context, fromUserID, toUserID int64) error {
	_, err := fs.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO friendships (from_user_id, to_user_id, created_at) VALUES (?, ?, ?)`,
		fromUserID, toUserID, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (fs *FriendshipStore) Unfollow(ctx context.Context, fromUserID, toUserID int64) error {
	_, err := fs.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE from_user_id = ? AND to_user_id = ?`,
		fromUserID, toUserID,
	)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (fs *FriendshipStore) GetAllFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := fs.db.QueryContext(ctx,
		`SELECT from_user_id FROM friendships WHERE to_user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get followers of user %d: %w", userID, err)
	}
	defer rows.Close()

	var followerIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		followerIDs = append(followerIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return followerIDs, nil
}
