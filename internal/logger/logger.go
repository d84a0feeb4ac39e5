package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcq-quiz-service/internal/config"
)

// New builds the application logger: JSON output in production, console otherwise.
func New(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Log.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build()
}
