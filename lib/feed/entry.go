package feed

import (
	"encoding/json"
	"time"
)

// Entry is one row of a recipient's personal feed: a reference to a tweet
// that should appear in that recipient's timeline. Many entries point at the
// same tweet but every entry belongs to exactly one recipient.
type Entry struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	ContentID   int64     `json:"content_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// MoreRecent reports whether e sorts before other in a most-recent-first
// feed. CreatedAt decides; equal timestamps fall back to the higher id,
// which is the one deterministic tiebreak used everywhere in this service.
func (e Entry) MoreRecent(other Entry) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.After(other.CreatedAt)
	}
	return e.ID > other.ID
}

// EncodeEntry serializes an entry for the Redis list cache. JSON with
// RFC3339Nano timestamps round-trips every field exactly and is stable
// across process restarts.
func EncodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
