// Package sqlite persists score records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kamass93/quiz-bot/internal/domain"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "scores.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent session completions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL,
			category TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			completed_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_category_score ON scores(category, score DESC);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scores (user_id, username, category, score, total, completed_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UserID,
		rec.Username,
		rec.Category,
		rec.Score,
		rec.Total,
		rec.CompletedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append score: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// TopByCategory returns up to n records ordered by descending score; ties
// keep insertion order (the rowid).
func (s *Store) TopByCategory(ctx context.Context, category string, n int) ([]domain.ScoreRecord, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id, username, category, score, total, completed_at_unix
		 FROM scores
		 WHERE category = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		category,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := make([]domain.ScoreRecord, 0, n)
	for rows.Next() {
		var (
			rec             domain.ScoreRecord
			completedAtUnix int64
		)
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.Category, &rec.Score, &rec.Total, &completedAtUnix); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w: %w", domain.ErrStorageUnavailable, err)
		}
		rec.CompletedAt = time.Unix(0, completedAtUnix).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
