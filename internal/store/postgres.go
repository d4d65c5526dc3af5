package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"melodora/internal/core"
)

const (
	pgMaxConns = 10
	pgMinConns = 1
)

const pgRecentComparisons = `
SELECT id::text,
       COALESCE(uploaded_url, ''),
       COALESCE(from_title, ''),
       matched_song_id::int8,
       COALESCE(matched_title, ''),
       COALESCE(matched_url, ''),
       COALESCE(similarity, 0)::float8,
       uploaded_bpm::float8,
       uploaded_key,
       created_at
FROM comparisons
WHERE user_uid = $1::uuid
ORDER BY created_at DESC
LIMIT $2`

const pgSongTitles = `SELECT id::int8, COALESCE(title, '') FROM songs WHERE id = ANY($1::int8[])`

// PostgresStore reads history from the Supabase Postgres database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.MaxConns = pgMaxConns
	config.MinConns = pgMinConns

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("Postgres history store connected", zap.String("host", config.ConnConfig.Host))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// RecentComparisons rejects ids that are not UUIDs before querying, so the
// lookup stays on the user_uid index.
func (s *PostgresStore) RecentComparisons(ctx context.Context, userID string, limit int) ([]core.HistoryItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	rows, err := s.pool.Query(ctx, pgRecentComparisons, uid.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var items []core.HistoryItem
	for rows.Next() {
		var item core.HistoryItem
		if err := rows.Scan(
			&item.ID,
			&item.UploadedURL,
			&item.FromTitle,
			&item.MatchedSongID,
			&item.MatchedTitle,
			&item.MatchedURL,
			&item.Similarity,
			&item.BPM,
			&item.Key,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SongTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	rows, err := s.pool.Query(ctx, pgSongTitles, distinctIDs(ids))
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
