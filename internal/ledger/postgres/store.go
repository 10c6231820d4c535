// Package postgres persists score records in Postgres. Schema management
// lives in the migrations subpackage and runs via the migrate CLI command.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kamass93/quiz-bot/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO scores (user_id, username, category, score, total, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.UserID,
		rec.Username,
		rec.Category,
		rec.Score,
		rec.Total,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("append score: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) TopByCategory(ctx context.Context, category string, n int) ([]domain.ScoreRecord, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.pool.Query(
		ctx,
		`SELECT user_id, username, category, score, total, completed_at
		 FROM scores
		 WHERE category = $1
		 ORDER BY score DESC, id ASC
		 LIMIT $2`,
		category,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := make([]domain.ScoreRecord, 0, n)
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.Category, &rec.Score, &rec.Total, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w: %w", domain.ErrStorageUnavailable, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
