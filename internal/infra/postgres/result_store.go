package postgres

import (
	"context"
	"fmt"
	"time"

	"mcq-quiz-service/internal/domain"

	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID             int64                 `bun:"id,pk,autoincrement"`
	Name           string                `bun:"user_name,notnull"`
	Phone          string                `bun:"user_phone,notnull"`
	Score          int                   `bun:"score,notnull"`
	TotalQuestions int                   `bun:"total_questions,notnull"`
	TimeSpent      int                   `bun:"time_spent,notnull"`
	Details        []domain.AnswerDetail `bun:"detailed_answers,type:jsonb"`
	SubmittedAt    time.Time             `bun:"submitted_at,notnull"`
}

func toRow(result domain.Result) resultRow {
	details := result.Details
	if details == nil {
		details = []domain.AnswerDetail{}
	}
	return resultRow{
		Name:           result.Name,
		Phone:          result.Phone,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      result.TimeSpent,
		Details:        details,
		SubmittedAt:    result.Timestamp.UTC(),
	}
}

func (r resultRow) toResult() domain.Result {
	return domain.Result{
		Name:           r.Name,
		Phone:          r.Phone,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Details:        r.Details,
		Timestamp:      r.SubmittedAt,
		TimeSpent:      r.TimeSpent,
	}
}

// ResultStore keeps results in the results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) AppendResult(ctx context.Context, result domain.Result) error {
	row := toRow(result)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	var rows []resultRow
	if err := s.db.NewSelect().Model(&rows).Order("r.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toResult())
	}
	return out, nil
}

func (s *ResultStore) ClearResults(ctx context.Context) error {
	if _, err := s.db.NewDelete().Model((*resultRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}
