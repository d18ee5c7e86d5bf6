package lobby

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Entry describes a session that has exactly one participant and is
// waiting for an opponent.
type Entry struct {
	SessionID string    `json:"session_id"`
	OpenedAt  time.Time `json:"opened_at"`
}

// Index stores open sessions. Implementations must be safe for concurrent use.
type Index interface {
	Open(ctx context.Context, e Entry) error
	Close(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]Entry, error)
}

var (
	ErrInvalidArgs = errors.New("invalid arguments")
	ErrClosed      = errors.New("lobby publisher closed")
	ErrQueueFull   = errors.New("lobby queue full")
)

// sortEntries orders oldest first, ties broken by id.
func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].OpenedAt.Equal(es[j].OpenedAt) {
			return es[i].OpenedAt.Before(es[j].OpenedAt)
		}
		return es[i].SessionID < es[j].SessionID
	})
}
