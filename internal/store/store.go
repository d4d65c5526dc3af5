// Package store reads comparison history from Postgres (Supabase) or SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"melodora/internal/core"
)

// ErrUnsupportedURL is returned by Open for database URLs with an unknown scheme.
var ErrUnsupportedURL = errors.New("unsupported database URL")

// HistoryStore is the read side of the comparisons and songs relations.
type HistoryStore interface {
	// RecentComparisons returns up to limit rows for userID, newest first.
	// Titles are the ones stored on the comparison row and may be empty.
	RecentComparisons(ctx context.Context, userID string, limit int) ([]core.HistoryItem, error)
	// SongTitles maps song ids to titles. Unknown ids are absent from the map.
	SongTitles(ctx context.Context, ids []int64) (map[int64]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open picks the store implementation from the URL scheme. An empty URL
// yields a nil store and no error; callers treat that as "no history".
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (HistoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return nil, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(ctx, url, logger.Named("postgres"))
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"), logger.Named("sqlite"))
	case strings.HasPrefix(url, "file:"), url == ":memory:":
		return NewSQLiteStore(ctx, url, logger.Named("sqlite"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redact(url))
	}
}

// redact strips credentials before a URL ends up in an error or log line.
func redact(url string) string {
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return url
}

// distinctIDs drops duplicates while keeping the first-seen order.
func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
