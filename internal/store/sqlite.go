package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"melodora/internal/core"
)

//go:embed schema.sql
var sqliteSchema string

const sqliteRecentComparisons = `
SELECT CAST(id AS TEXT),
       COALESCE(uploaded_url, ''),
       COALESCE(from_title, ''),
       matched_song_id,
       COALESCE(matched_title, ''),
       COALESCE(matched_url, ''),
       COALESCE(similarity, 0),
       CAST(uploaded_bpm AS REAL),
       uploaded_key,
       created_at
FROM comparisons
WHERE user_uid = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

// SQLiteStore is a local stand-in for the Supabase tables, used for
// development and tests. It can also seed rows.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens path (":memory:" for an in-memory database) and
// applies the embedded schema.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	logger.Info("SQLite history store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Comparison is a row to seed into the comparisons table.
type Comparison struct {
	UserID        string
	UploadedURL   string
	FromTitle     string
	MatchedSongID *int64
	MatchedTitle  string
	MatchedURL    string
	Similarity    float64
	BPM           *int
	Key           *string
	CreatedAt     time.Time
}

// InsertComparison stores c and returns its id.
func (s *SQLiteStore) InsertComparison(ctx context.Context, c Comparison) (int64, error) {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO comparisons (user_uid, uploaded_url, from_title, matched_song_id, matched_title,
                         matched_url, similarity, uploaded_bpm, uploaded_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.UploadedURL, nullString(c.FromTitle), c.MatchedSongID, nullString(c.MatchedTitle),
		c.MatchedURL, c.Similarity, c.BPM, c.Key, createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert comparison: %w", err)
	}
	return res.LastInsertId()
}

// InsertSong stores a song title under id, replacing an existing row.
func (s *SQLiteStore) InsertSong(ctx context.Context, id int64, title, url string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO songs (id, title, url) VALUES (?, ?, ?)`, id, title, url); err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentComparisons(ctx context.Context, userID string, limit int) ([]core.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, sqliteRecentComparisons, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var items []core.HistoryItem
	for rows.Next() {
		var (
			item    core.HistoryItem
			songID  sql.NullInt64
			bpm     sql.NullFloat64
			key     sql.NullString
			created time.Time
		)
		if err := rows.Scan(
			&item.ID,
			&item.UploadedURL,
			&item.FromTitle,
			&songID,
			&item.MatchedTitle,
			&item.MatchedURL,
			&item.Similarity,
			&bpm,
			&key,
			&created,
		); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		if songID.Valid {
			id := songID.Int64
			item.MatchedSongID = &id
		}
		if bpm.Valid {
			v := bpm.Float64
			item.BPM = &v
		}
		if key.Valid {
			k := key.String
			item.Key = &k
		}
		item.CreatedAt = created
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) SongTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	ids = distinctIDs(ids)
	if len(ids) == 0 {
		return titles, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, COALESCE(title, '') FROM songs WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return titles, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
