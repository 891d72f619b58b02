package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// TimestampLayout is the ISO-8601 local timestamp written to log entries
// (microsecond precision, no zone).
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Config configures storage.
//
// Path is the log file (file driver), the database file (sqlite) or a DSN
// (postgres). If Driver is "none", publications are not recorded.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one successful publication.
type Entry struct {
	Timestamp string `json:"timestamp" db:"timestamp"`
	PostID    int    `json:"post_id" db:"post_id"`
	PostType  string `json:"post_type" db:"post_type"`
	Channel   string `json:"channel" db:"channel"`
}

// NewEntry stamps an entry with t formatted as TimestampLayout.
func NewEntry(t time.Time, postID int, postType, channel string) Entry {
	return Entry{
		Timestamp: t.Format(TimestampLayout),
		PostID:    postID,
		PostType:  postType,
		Channel:   channel,
	}
}

// Store is the append-only publication log.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// List returns all entries, oldest first.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}
