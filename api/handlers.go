package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yliang52/newsfeed_service/lib/feed"
	"github.com/yliang52/newsfeed_service/lib/pagination"
)

const MAX_TWEET_LENGTH = 280

type CreateTweetPayload struct {
	AuthorID int64  `json:"author_id"`
	Content  string `json:"content"`
}

func (app *APP) createTweetHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTweetPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestError(w, r, err)
		return
	}
	if payload.AuthorID <= 0 {
		app.badRequestError(w, r, errors.New("author_id is required"))
		return
	}
	if payload.Content == "" || len(payload.Content) > MAX_TWEET_LENGTH {
		app.badRequestError(w, r, errors.New("content must be between 1 and 280 characters"))
		return
	}

	tweet, err := app.tweets.Create(r.Context(), payload.AuthorID, payload.Content, time.Now())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Fan-out is fire-and-forget from the author's point of view: the tweet
	// exists, so a lost batch is logged, never turned into an error response.
	if err := app.newsfeeds.FanOut(r.Context(), tweet.ID, tweet.AuthorID); err != nil {
		slog.Error("fan-out incomplete", "tweet_id", tweet.ID, "error", err)
	}

	jsonResponse(w, http.StatusCreated, tweet)
}

type NewsFeedItemPayload struct {
	ID        int64      `json:"id"`
	Tweet     feed.Tweet `json:"tweet"`
	CreatedAt time.Time  `json:"created_at"`
}

type NewsFeedPagePayload struct {
	HasNextPage bool                  `json:"has_next_page"`
	Results     []NewsFeedItemPayload `json:"results"`
}

func (app *APP) getNewsFeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestError(w, r, errors.New("invalid user id"))
		return
	}

	cursor, err := parseCursor(r)
	if err != nil {
		app.badRequestError(w, r, err)
		return
	}

	page, err := app.newsfeeds.GetPage(r.Context(), userID, cursor)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	tweetIDs := make([]int64, len(page.Results))
	for i, entry := range page.Results {
		tweetIDs[i] = entry.ContentID
	}
	tweets, err := app.tweets.GetByIDs(r.Context(), tweetIDs)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	payload := NewsFeedPagePayload{
		HasNextPage: page.HasNextPage,
		Results:     make([]NewsFeedItemPayload, len(page.Results)),
	}
	for i, entry := range page.Results {
		payload.Results[i] = NewsFeedItemPayload{
			ID:        entry.ID,
			Tweet:     tweets[entry.ContentID],
			CreatedAt: entry.CreatedAt,
		}
	}
	jsonResponse(w, http.StatusOK, payload)
}

// parseCursor reads the endless-pagination query parameters. created_at__gt
// pulls everything newer than the client's newest item; created_at__lt pages
// back through history, optionally with id__lt as the tiebreak for entries
// sharing the cursor timestamp.
func parseCursor(r *http.Request) (pagination.Cursor, error) {
	var cursor pagination.Cursor
	query := r.URL.Query()

	if raw := query.Get("created_at__gt"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return cursor, errors.New("invalid created_at__gt")
		}
		cursor.After = &t
		return cursor, nil
	}

	if raw := query.Get("created_at__lt"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return cursor, errors.New("invalid created_at__lt")
		}
		cursor.Before = &t

		if rawID := query.Get("id__lt"); rawID != "" {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				return cursor, errors.New("invalid id__lt")
			}
			cursor.BeforeID = id
		}
	}

	return cursor, nil
}

type FriendshipPayload struct {
	FromUserID int64 `json:"from_user_id"`
}

func (app *APP) followHandler(w http.ResponseWriter, r *http.Request) {
	app.updateFriendship(w, r, app.friendships.Follow)
}

func (app *APP) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	app.updateFriendship(w, r, app.friendships.Unfollow)
}

func (app *APP) updateFriendship(
	w http.ResponseWriter,
	r *http.Request,
	update func(ctx context.Context, fromUserID, toUserID int64) error,
) {
	toUserID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestError(w, r, errors.New("invalid user id"))
		return
	}

	var payload FriendshipPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestError(w, r, err)
		return
	}
	if payload.FromUserID <= 0 {
		app.badRequestError(w, r, errors.New("from_user_id is required"))
		return
	}

	if err := update(r.Context(), payload.FromUserID, toUserID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
