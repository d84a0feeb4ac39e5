package cli

import (
	"context"
	"errors"
	"fmt"

	"mcq-quiz-service/internal/infra/file"
	pgstore "mcq-quiz-service/internal/infra/postgres"
	redisstore "mcq-quiz-service/internal/infra/redis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCmd loads a question file into the questions table.
func NewImportCmd(configPath *string) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the questions table with the contents of a CSV or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, source)
		},
	}
	cmd.Flags().StringVar(&source, "file", "Question.csv", "question file (.csv or .json)")
	return cmd
}

func runImport(ctx context.Context, configPath, source string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return errors.New("postgres url not configured")
	}

	loader, err := file.NewQuestionLoader(source)
	if err != nil {
		return err
	}
	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions found in %s", source)
	}

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if _, err := pgstore.Migrate(ctx, d.db); err != nil {
		return err
	}
	if err := pgstore.NewQuestionLoader(d.pool).ReplaceQuestions(ctx, questions); err != nil {
		return err
	}
	log.Info("questions imported", zap.String("file", source), zap.Int("count", len(questions)))

	if d.redis != nil {
		cache := redisstore.NewQuestionRepository(d.redis, nil, 0)
		if err := cache.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate question cache", zap.Error(err))
		}
	}
	return nil
}
