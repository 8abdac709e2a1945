// Package newsfeed implements the fan-out and read pipeline: when a tweet
// is posted every follower gets a feed entry, written in async batches, and
// reads are served from a capped per-recipient cache with a durable-store
// fallback.
package newsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yliang52/newsfeed_service/lib/feed"
	"github.com/yliang52/newsfeed_service/lib/pagination"
)

// BatchTask is one asynchronous unit of fan-out work: create a feed entry
// referencing ContentID for every follower in the batch. Delivery is
// at-least-once; the store's unique (recipient, content) index absorbs
// replays.
type BatchTask struct {
	ContentID   int64   `json:"content_id"`
	FollowerIDs []int64 `json:"follower_ids"`
}

// Queue hands batch tasks to the async execution substrate.
type Queue interface {
	Enqueue(ctx context.Context, task BatchTask) error
}

type Service struct {
	store     *feed.Store
	cache     *FeedCache
	followers feed.FollowerDirectory
	queue     Queue
	paginator pagination.Paginator
	batchSize int
	cacheCap  int
}

func NewService(
	store *feed.Store,
	cache *FeedCache,
	followers feed.FollowerDirectory,
	queue Queue,
	pageSize, batchSize, cacheCap int,
) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		followers: followers,
		queue:     queue,
		paginator: pagination.Paginator{PageSize: pageSize},
		batchSize: batchSize,
		cacheCap:  cacheCap,
	}
}

// FanOut distributes newly authored content. The author's own entry is
// written durably before this returns, so the author reads their own post
// immediately. Followers are partitioned into fixed-size batches, one queue
// message each; their entries appear whenever the workers get to them.
//
// Cache failures are logged and swallowed. An enqueue failure is returned,
// but by then the author's entry is durable: callers treat the authoring as
// succeeded and only log the lost batches.
func (s *Service) FanOut(ctx context.Context, contentID, authorID int64) error {
	entry, err := s.store.Create(ctx, authorID, contentID, time.Now())
	if err != nil {
		return fmt.Errorf("fan out content %d: %w", contentID, err)
	}
	if err := s.cache.PushSingle(ctx, authorID, entry); err != nil {
		slog.Warn("push own feed entry to cache", "author_id", authorID, "error", err)
	}

	followerIDs, err := s.followers.GetAllFollowerIDs(ctx, authorID)
	if err != nil {
		return fmt.Errorf("fan out content %d: %w", contentID, err)
	}

	batches := 0
	for index := 0; index < len(followerIDs); index += s.batchSize {
		end := index + s.batchSize
		if end > len(followerIDs) {
			end = len(followerIDs)
		}
		task := BatchTask{ContentID: contentID, FollowerIDs: followerIDs[index:end]}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("enqueue fan-out batch: %w", err)
		}
		batches++
	}

	slog.Info("fan-out scheduled",
		"content_id", contentID,
		"author_id", authorID,
		"followers", len(followerIDs),
		"batches", batches,
	)
	return nil
}

// FanOutBatch runs one batch task: a single bulk insert for every follower
// in the batch, then a cache push per created entry. The bulk write skips
// the single-create path and with it the write-through hook, hence the
// explicit pushes.
func (s *Service) FanOutBatch(ctx context.Context, task BatchTask) error {
	entries, err := s.store.BulkCreate(ctx, task.FollowerIDs, task.ContentID, time.Now())
	if err != nil {
		return fmt.Errorf("fan-out batch for content %d: %w", task.ContentID, err)
	}

	for _, entry := range entries {
		if err := s.cache.PushSingle(ctx, entry.RecipientID, entry); err != nil {
			slog.Warn("push feed entry to cache",
				"recipient_id", entry.RecipientID,
				"content_id", entry.ContentID,
				"error", err,
			)
		}
	}
	return nil
}

// GetPage serves one page of a recipient's feed. The cached list answers
// when it can; when it cannot prove the page complete (it sits at the cap
// with nothing left past the cursor) the page is re-derived from the store.
func (s *Service) GetPage(ctx context.Context, recipientID int64, cur pagination.Cursor) (pagination.Page, error) {
	cached, err := s.cache.LoadCached(ctx, recipientID)
	if err != nil {
		return pagination.Page{}, err
	}

	page, ok := s.paginator.PaginateCached(cached, cur, s.cacheCap)
	if ok {
		return page, nil
	}

	entries, err := s.store.ListByRecipient(ctx, recipientID, feed.ListQuery{
		Before:   cur.Before,
		BeforeID: cur.BeforeID,
		Limit:    s.paginator.PageSize + 1,
	})
	if err != nil {
		return pagination.Page{}, err
	}

	hasNext := len(entries) > s.paginator.PageSize
	if hasNext {
		entries = entries[:s.paginator.PageSize]
	}
	return pagination.Page{HasNextPage: hasNext, Results: entries}, nil
}
