package newsfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yliang52/newsfeed_service/lib/feed"
	"github.com/yliang52/newsfeed_service/lib/pagination"
)

// stubQueue records enqueued batch tasks so tests control when the async
// side of the fan-out runs.
type stubQueue struct {
	tasks []BatchTask
}

func (q *stubQueue) Enqueue(ctx context.Context, task BatchTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *stubQueue) drain(t *testing.T, service *Service) {
	t.Helper()
	for _, task := range q.tasks {
		require.NoError(t, service.FanOutBatch(context.Background(), task))
	}
	q.tasks = nil
}

type fixture struct {
	service     *Service
	store       *feed.Store
	friendships *feed.FriendshipStore
	queue       *stubQueue
}

func newFixture(t *testing.T, pageSize, batchSize, cacheCap int) fixture {
	t.Helper()
	conn := newTestDB(t)
	store := feed.NewStore(conn)
	friendships := feed.NewFriendshipStore(conn)
	queue := &stubQueue{}
	cache := NewFeedCache(newFakeListStore(), store, cacheCap, time.Minute)
	service := NewService(store, cache, friendships, queue, pageSize, batchSize, cacheCap)
	return fixture{service: service, store: store, friendships: friendships, queue: queue}
}

func TestFanOutAuthorSeesOwnPostImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20, 1000, 200)

	author := int64(1)
	followers := []int64{2, 3}
	for _, follower := range followers {
		require.NoError(t, f.friendships.Follow(ctx, follower, author))
	}

	require.NoError(t, f.service.FanOut(ctx, 42, author))

	// The author's entry is durable before FanOut returns.
	page, err := f.service.GetPage(ctx, author, pagination.Cursor{})
	require.NoError(t, err)
	require.Equal(t, []int64{42}, contentIDs(page.Results))

	// Followers see nothing until the batches are processed.
	page, err = f.service.GetPage(ctx, followers[0], pagination.Cursor{})
	require.NoError(t, err)
	require.Empty(t, page.Results)

	f.queue.drain(t, f.service)

	for _, follower := range followers {
		page, err := f.service.GetPage(ctx, follower, pagination.Cursor{})
		require.NoError(t, err)
		require.Equal(t, []int64{42}, contentIDs(page.Results))
	}
}

func TestFanOutPartitionsFollowersIntoBatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20, 3, 200)

	author := int64(1)
	for follower := int64(10); follower < 17; follower++ {
		require.NoError(t, f.friendships.Follow(ctx, follower, author))
	}

	require.NoError(t, f.service.FanOut(ctx, 42, author))

	require.Len(t, f.queue.tasks, 3)
	require.Equal(t, []int64{10, 11, 12}, f.queue.tasks[0].FollowerIDs)
	require.Equal(t, []int64{13, 14, 15}, f.queue.tasks[1].FollowerIDs)
	require.Equal(t, []int64{16}, f.queue.tasks[2].FollowerIDs)

	f.queue.drain(t, f.service)

	for follower := int64(10); follower < 17; follower++ {
		entries, err := f.store.ListByRecipient(ctx, follower, feed.ListQuery{})
		require.NoError(t, err)
		require.Equal(t, []int64{42}, contentIDs(entries))
	}
}

func TestFanOutBatchRedelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20, 1000, 200)

	task := BatchTask{ContentID: 42, FollowerIDs: []int64{2, 3}}
	require.NoError(t, f.service.FanOutBatch(ctx, task))
	require.NoError(t, f.service.FanOutBatch(ctx, task))

	for _, follower := range task.FollowerIDs {
		entries, err := f.store.ListByRecipient(ctx, follower, feed.ListQuery{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
	}
}

func TestGetPageFallsBackPastCacheCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4, 1000, 3)

	recipient := int64(7)
	for i := 1; i <= 10; i++ {
		_, err := f.store.Create(ctx, recipient, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	// The page size exceeds the cache cap, so the cached list cannot prove
	// the page complete and the store answers instead.
	page, err := f.service.GetPage(ctx, recipient, pagination.Cursor{})
	require.NoError(t, err)
	require.True(t, page.HasNextPage)
	require.Equal(t, []int64{10, 9, 8, 7}, contentIDs(page.Results))

	direct, err := f.store.ListByRecipient(ctx, recipient, feed.ListQuery{Limit: 4})
	require.NoError(t, err)
	require.Equal(t, contentIDs(direct), contentIDs(page.Results))

	// Walking the rest of the feed yields every entry exactly once.
	seen := contentIDs(page.Results)
	for page.HasNextPage {
		last := page.Results[len(page.Results)-1]
		before := last.CreatedAt
		page, err = f.service.GetPage(ctx, recipient, pagination.Cursor{Before: &before, BeforeID: last.ID})
		require.NoError(t, err)
		seen = append(seen, contentIDs(page.Results)...)
	}
	require.Equal(t, []int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, seen)
}

func TestGetPagePullNewest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2, 1000, 200)

	recipient := int64(7)
	var entries []feed.Entry
	for i := 1; i <= 6; i++ {
		entry, err := f.store.Create(ctx, recipient, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	after := entries[2].CreatedAt
	page, err := f.service.GetPage(ctx, recipient, pagination.Cursor{After: &after})
	require.NoError(t, err)
	require.False(t, page.HasNextPage)
	require.Equal(t, []int64{6, 5, 4}, contentIDs(page.Results))
}
