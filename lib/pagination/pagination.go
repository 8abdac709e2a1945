// Package pagination implements endless (cursor) pagination over a
// most-recent-first feed. Clients page backwards through history with a
// created-before cursor and refresh forwards with a created-after cursor.
package pagination

import (
	"time"

	"github.com/yliang52/newsfeed_service/lib/feed"
)

// Cursor carries the optional boundaries of one page request. After and
// Before are mutually exclusive; if both are set After wins, mirroring which
// query parameter the read path checks first. BeforeID optionally extends
// the Before boundary with the id tiebreak, so that of two entries sharing
// the cursor timestamp the one with the smaller id still counts as older.
type Cursor struct {
	After    *time.Time
	Before   *time.Time
	BeforeID int64
}

type Page struct {
	HasNextPage bool         `json:"has_next_page"`
	Results     []feed.Entry `json:"results"`
}

type Paginator struct {
	PageSize int
}

// Paginate pages over entries, which must be ordered most-recent-first.
//
// With an After cursor it returns everything strictly newer, uncapped, and
// never reports a next page: the client is prepending fresh items to a view
// it already has, not walking history. Otherwise it drops entries at or
// newer than the Before boundary (if any), probes PageSize+1 of the rest,
// and returns the first PageSize.
func (p Paginator) Paginate(entries []feed.Entry, cur Cursor) Page {
	if cur.After != nil {
		var results []feed.Entry
		for _, e := range entries {
			if !e.CreatedAt.After(*cur.After) {
				break
			}
			results = append(results, e)
		}
		return Page{HasNextPage: false, Results: results}
	}

	start := 0
	if cur.Before != nil {
		start = len(entries)
		for i, e := range entries {
			if olderThanCursor(e, cur) {
				start = i
				break
			}
		}
	}

	window := entries[start:]
	hasNext := len(window) > p.PageSize
	if hasNext {
		window = window[:p.PageSize]
	}
	return Page{HasNextPage: hasNext, Results: window}
}

// PaginateCached applies Paginate to a cache-resident list and reports
// whether the result is authoritative. A capped cache cannot tell "no more
// data" apart from "more data past the cap": when the scan found no next
// page and the cache sits exactly at cacheCap, the caller must re-derive the
// page from the durable store, so ok is false.
func (p Paginator) PaginateCached(entries []feed.Entry, cur Cursor, cacheCap int) (Page, bool) {
	page := p.Paginate(entries, cur)

	if cur.After != nil {
		return page, true
	}
	if page.HasNextPage {
		return page, true
	}
	if len(entries) < cacheCap {
		return page, true
	}
	return page, false
}

// Cursor boundaries are exclusive: an entry whose CreatedAt equals the
// cursor is never returned again unless the id tiebreak says it is older.
func olderThanCursor(e feed.Entry, cur Cursor) bool {
	if e.CreatedAt.Before(*cur.Before) {
		return true
	}
	if cur.BeforeID > 0 && e.CreatedAt.Equal(*cur.Before) {
		return e.ID < cur.BeforeID
	}
	return false
}
