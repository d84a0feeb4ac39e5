package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mcq-quiz-service/internal/domain"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_name        TEXT NOT NULL,
	user_phone       TEXT NOT NULL,
	score            INTEGER NOT NULL,
	total_questions  INTEGER NOT NULL,
	time_spent       INTEGER NOT NULL DEFAULT 0,
	detailed_answers TEXT NOT NULL DEFAULT '[]',
	submitted_at     TEXT NOT NULL
)`

// ResultStore keeps results in a local SQLite file, for single-node deployments
// without Postgres.
type ResultStore struct {
	db *sql.DB
}

// Open creates the database at path (and its directory) and applies the schema.
func Open(path string) (*ResultStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

func (s *ResultStore) AppendResult(ctx context.Context, result domain.Result) error {
	details := result.Details
	if details == nil {
		details = []domain.AnswerDetail{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (user_name, user_phone, score, total_questions, time_spent, detailed_answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.Name, result.Phone, result.Score, result.TotalQuestions, result.TimeSpent,
		string(payload), result.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, user_phone, score, total_questions, time_spent, detailed_answers, submitted_at
		FROM results
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var (
			r         domain.Result
			details   string
			submitted string
		)
		if err := rows.Scan(&r.Name, &r.Phone, &r.Score, &r.TotalQuestions, &r.TimeSpent, &details, &submitted); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", submitted, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ResultStore) ClearResults(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
