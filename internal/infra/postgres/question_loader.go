package postgres

import (
	"context"
	"fmt"

	"mcq-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads the question bank from the questions table.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, option_a, option_b, option_c, option_d, correct_answer
		FROM questions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options.A, &q.Options.B, &q.Options.C, &q.Options.D, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// ReplaceQuestions swaps the whole bank in one transaction.
func (l *QuestionLoader) ReplaceQuestions(ctx context.Context, questions []domain.Question) error {
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}

		batch := &pgx.Batch{}
		for _, q := range questions {
			batch.Queue(`
				INSERT INTO questions (id, prompt, option_a, option_b, option_c, option_d, correct_answer)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET
					prompt = EXCLUDED.prompt,
					option_a = EXCLUDED.option_a,
					option_b = EXCLUDED.option_b,
					option_c = EXCLUDED.option_c,
					option_d = EXCLUDED.option_d,
					correct_answer = EXCLUDED.correct_answer,
					updated_at = now()`,
				q.ID, q.Prompt, q.Options.A, q.Options.B, q.Options.C, q.Options.D, q.CorrectAnswer)
		}
		results := tx.SendBatch(ctx, batch)
		for range questions {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return results.Close()
	})
}
