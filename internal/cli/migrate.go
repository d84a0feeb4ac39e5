package cli

import (
	"context"
	"fmt"

	pgstore "mcq-quiz-service/internal/infra/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := pgstore.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	applied, err := pgstore.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Info("database is up to date")
		return nil
	}
	log.Info("migrations applied", zap.Strings("migrations", applied))
	return nil
}
