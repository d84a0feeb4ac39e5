package cli

import (
	"fmt"
	"os"

	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "quiz-service",
		Short:        "Timed multiple-choice test service with shuffled questions and ranked results",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewImportCmd(&configPath))
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewRankCmd(&configPath))
	cmd.AddCommand(NewExportCmd(&configPath))
	cmd.AddCommand(NewHashPasswordCmd())
	return cmd
}

// setup loads config and builds the logger every command shares.
func setup(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
