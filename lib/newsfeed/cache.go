package newsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yliang52/newsfeed_service/lib/feed"
)

// ListStore is the set of ordered-list primitives the feed cache needs from
// its key-value backend. lib/cache provides the Redis implementation; tests
// use an in-memory one.
type ListStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Range(ctx context.Context, key string) ([][]byte, error)
	PushFront(ctx context.Context, key string, value []byte) error
	PushBackAll(ctx context.Context, key string, values [][]byte, ttl time.Duration) error
	Trim(ctx context.Context, key string, maxLength int) error
}

// FeedCache keeps, per recipient, the most-recent feed entries as a capped
// list with a TTL, populated read-through from the durable store and updated
// write-through on fan-out. Cache contents when present are always a
// most-recent prefix of the recipient's true feed.
type FeedCache struct {
	lists ListStore
	store *feed.Store
	limit int
	ttl   time.Duration
}

func NewFeedCache(lists ListStore, store *feed.Store, limit int, ttl time.Duration) *FeedCache {
	return &FeedCache{lists: lists, store: store, limit: limit, ttl: ttl}
}

func cacheKey(recipientID int64) string {
	return fmt.Sprint("newsfeeds:", recipientID)
}

// LoadCached returns the recipient's cached entries most-recent-first. On a
// cold or expired key it queries the store (bounded to the cache cap),
// repopulates the cache and returns what it loaded. Cache read failures are
// treated as misses, never surfaced.
func (c *FeedCache) LoadCached(ctx context.Context, recipientID int64) ([]feed.Entry, error) {
	key := cacheKey(recipientID)

	exists, err := c.lists.Exists(ctx, key)
	if err != nil {
		slog.Warn("feed cache unavailable, falling back to store", "key", key, "error", err)
		exists = false
	}

	if exists {
		serialized, err := c.lists.Range(ctx, key)
		if err != nil {
			slog.Warn("feed cache read failed, falling back to store", "key", key, "error", err)
		} else {
			entries := make([]feed.Entry, 0, len(serialized))
			for _, data := range serialized {
				entry, err := feed.DecodeEntry(data)
				if err != nil {
					return nil, fmt.Errorf("decode cached feed entry: %w", err)
				}
				entries = append(entries, entry)
			}
			return entries, nil
		}
	}

	entries, err := c.store.ListByRecipient(ctx, recipientID, feed.ListQuery{Limit: c.limit})
	if err != nil {
		return nil, err
	}
	c.populate(ctx, key, entries)
	return entries, nil
}

// PushSingle prepends one freshly created entry to the recipient's cache and
// trims the list back to the cap. A missing key gets the full read-through
// population instead: a lone push into an empty list would leave a cache
// that is not a prefix of the real feed.
func (c *FeedCache) PushSingle(ctx context.Context, recipientID int64, entry feed.Entry) error {
	key := cacheKey(recipientID)

	exists, err := c.lists.Exists(ctx, key)
	if err != nil {
		return err
	}

	if !exists {
		entries, err := c.store.ListByRecipient(ctx, recipientID, feed.ListQuery{Limit: c.limit})
		if err != nil {
			return err
		}
		c.populate(ctx, key, entries)
		return nil
	}

	data, err := feed.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.lists.PushFront(ctx, key, data); err != nil {
		return err
	}
	return c.lists.Trim(ctx, key, c.limit)
}

// populate is best effort: a cache write failure only costs the next reader
// another store query.
func (c *FeedCache) populate(ctx context.Context, key string, entries []feed.Entry) {
	if len(entries) == 0 {
		return
	}

	serialized := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		data, err := feed.EncodeEntry(entry)
		if err != nil {
			slog.Warn("encode feed entry for cache", "key", key, "error", err)
			return
		}
		serialized = append(serialized, data)
	}

	if err := c.lists.PushBackAll(ctx, key, serialized, c.ttl); err != nil {
		slog.Warn("feed cache write failed", "key", key, "error", err)
	}
}
