// Package history loads a user's recent comparisons for display.
package history

import (
	"context"

	"go.uber.org/zap"

	"melodora/internal/core"
	"melodora/internal/store"
)

const (
	unknownTitle = "Unknown Title"
	unknownSong  = "Unknown Song"
)

// Observer is notified of every load outcome ("ok", "empty", "error", "disabled").
type Observer func(outcome string)

// Loader fetches history pages and resolves matched song titles. It never
// fails: errors are logged and produce an empty page.
type Loader struct {
	store    store.HistoryStore
	logger   *zap.Logger
	observer Observer
}

// NewLoader creates a loader. A nil store disables history.
func NewLoader(historyStore store.HistoryStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: historyStore, logger: logger}
}

// SetObserver registers a callback for load outcomes.
func (l *Loader) SetObserver(observer Observer) {
	l.observer = observer
}

// Load returns up to limit comparisons for userID, newest first, with
// display titles filled in.
func (l *Loader) Load(ctx context.Context, userID string, limit int) []core.HistoryItem {
	if l.store == nil {
		l.observe("disabled")
		return []core.HistoryItem{}
	}

	rows, err := l.store.RecentComparisons(ctx, userID, limit)
	if err != nil {
		l.logger.Error("Failed to fetch comparisons",
			zap.String("user_id", userID),
			zap.Error(err))
		l.observe("error")
		return []core.HistoryItem{}
	}
	if len(rows) == 0 {
		l.observe("empty")
		return []core.HistoryItem{}
	}

	titles := l.songTitles(ctx, rows)
	items := make([]core.HistoryItem, len(rows))
	for i, row := range rows {
		items[i] = mergeTitles(row, titles)
	}

	l.observe("ok")
	return items
}

// songTitles performs the single secondary lookup for the page. A failure
// keeps the rows' stored titles.
func (l *Loader) songTitles(ctx context.Context, rows []core.HistoryItem) map[int64]string {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.MatchedSongID != nil {
			ids = append(ids, *row.MatchedSongID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	titles, err := l.store.SongTitles(ctx, ids)
	if err != nil {
		l.logger.Warn("Failed to resolve song titles", zap.Int("ids", len(ids)), zap.Error(err))
		return nil
	}
	return titles
}

func mergeTitles(row core.HistoryItem, titles map[int64]string) core.HistoryItem {
	item := row
	if item.MatchedSongID != nil {
		if title, ok := titles[*item.MatchedSongID]; ok && title != "" {
			item.MatchedTitle = title
		}
	}
	if item.MatchedTitle == "" {
		item.MatchedTitle = unknownSong
	}
	if item.FromTitle == "" {
		item.FromTitle = unknownTitle
	}
	return item
}

func (l *Loader) observe(outcome string) {
	if l.observer != nil {
		l.observer(outcome)
	}
}

// Stats summarizes items for the profile page.
func Stats(items []core.HistoryItem) core.HistoryStats {
	stats := core.HistoryStats{TotalSearches: len(items)}
	if len(items) == 0 {
		return stats
	}
	var sum float64
	for _, item := range items {
		sum += item.Similarity
	}
	stats.AverageSimilarity = sum / float64(len(items))
	return stats
}
