package newsfeed

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yliang52/newsfeed_service/lib/db"
	"github.com/yliang52/newsfeed_service/lib/feed"
)

// fakeListStore keeps ordered lists in memory with the same semantics as the
// Redis implementation. failReads makes every read error to exercise the
// fail-open path.
type fakeListStore struct {
	lists     map[string][][]byte
	failReads bool
}

func newFakeListStore() *fakeListStore {
	return &fakeListStore{lists: map[string][][]byte{}}
}

func (f *fakeListStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.failReads {
		return false, errors.New("list store down")
	}
	_, ok := f.lists[key]
	return ok, nil
}

func (f *fakeListStore) Range(ctx context.Context, key string) ([][]byte, error) {
	if f.failReads {
		return nil, errors.New("list store down")
	}
	values := f.lists[key]
	out := make([][]byte, len(values))
	copy(out, values)
	return out, nil
}

func (f *fakeListStore) PushFront(ctx context.Context, key string, value []byte) error {
	f.lists[key] = append([][]byte{value}, f.lists[key]...)
	return nil
}

func (f *fakeListStore) PushBackAll(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	f.lists[key] = append(f.lists[key], values...)
	return nil
}

func (f *fakeListStore) Trim(ctx context.Context, key string, maxLength int) error {
	if values, ok := f.lists[key]; ok && len(values) > maxLength {
		f.lists[key] = values[:maxLength]
	}
	return nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(context.Background(), conn))
	t.Cleanup(func() { conn.Close() })
	return conn
}

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestLoadCachedColdThenWarm(t *testing.T) {
	ctx := context.Background()
	store := feed.NewStore(newTestDB(t))
	lists := newFakeListStore()
	cache := NewFeedCache(lists, store, 10, time.Minute)

	for i := 1; i <= 3; i++ {
		_, err := store.Create(ctx, 7, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	// Cold load pulls from the store and populates the cache.
	entries, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, contentIDs(entries))
	require.Len(t, lists.lists[cacheKey(7)], 3)

	// A second load returns the same entries in the same order.
	again, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, contentIDs(entries), contentIDs(again))

	// A row written behind the cache's back is invisible until the key
	// expires or a push lands: the warm read never touches the store.
	_, err = store.Create(ctx, 7, 99, testBase.Add(time.Hour))
	require.NoError(t, err)
	warm, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, contentIDs(warm))
}

func TestLoadCachedBoundsColdLoad(t *testing.T) {
	ctx := context.Background()
	store := feed.NewStore(newTestDB(t))
	cache := NewFeedCache(newFakeListStore(), store, 3, time.Minute)

	for i := 1; i <= 8; i++ {
		_, err := store.Create(ctx, 7, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	entries, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{8, 7, 6}, contentIDs(entries))
}

func TestPushSingleTrimsToCap(t *testing.T) {
	ctx := context.Background()
	store := feed.NewStore(newTestDB(t))
	lists := newFakeListStore()
	cache := NewFeedCache(lists, store, 3, time.Minute)

	for i := 1; i <= 5; i++ {
		entry, err := store.Create(ctx, 7, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, cache.PushSingle(ctx, 7, entry))
	}

	entries, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 4, 3}, contentIDs(entries))
}

func TestPushSingleColdLoadsWholeFeed(t *testing.T) {
	ctx := context.Background()
	store := feed.NewStore(newTestDB(t))
	lists := newFakeListStore()
	cache := NewFeedCache(lists, store, 10, time.Minute)

	for i := 1; i <= 2; i++ {
		_, err := store.Create(ctx, 7, int64(i), testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	latest, err := store.Create(ctx, 7, 3, testBase.Add(3*time.Second))
	require.NoError(t, err)

	// The key is cold, so a single push repopulates the full list instead of
	// leaving a one-entry cache that is not a prefix of the feed.
	require.NoError(t, cache.PushSingle(ctx, 7, latest))
	require.Len(t, lists.lists[cacheKey(7)], 3)

	entries, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, contentIDs(entries))
}

func TestLoadCachedFailsOpen(t *testing.T) {
	ctx := context.Background()
	store := feed.NewStore(newTestDB(t))
	lists := newFakeListStore()
	cache := NewFeedCache(lists, store, 10, time.Minute)

	_, err := store.Create(ctx, 7, 1, testBase)
	require.NoError(t, err)

	lists.failReads = true
	entries, err := cache.LoadCached(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, contentIDs(entries))
}

func contentIDs(entries []feed.Entry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ContentID)
	}
	return ids
}
