package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/infra/file"
	"mcq-quiz-service/internal/infra/gsheets"
	"mcq-quiz-service/internal/infra/memory"
	pgstore "mcq-quiz-service/internal/infra/postgres"
	redisstore "mcq-quiz-service/internal/infra/redis"
	"mcq-quiz-service/internal/infra/sqlite"
	"mcq-quiz-service/internal/infra/xlsx"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// deps holds the connections opened for one command run.
type deps struct {
	cfg    config.Config
	log    *zap.Logger
	redis  *redis.Client
	pool   *pgxpool.Pool
	db     *bun.DB
	closer []func() error
}

func openDeps(ctx context.Context, cfg config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{cfg: cfg, log: log}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closer = append(d.closer, d.redis.Close)
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
		d.closer = append(d.closer, func() error { pool.Close(); return nil })

		d.db = pgstore.OpenDB(cfg.Postgres.URL)
		d.closer = append(d.closer, d.db.Close)
	}
	return d, nil
}

func (d *deps) Close() {
	for i := len(d.closer) - 1; i >= 0; i-- {
		_ = d.closer[i]()
	}
}

func (d *deps) questionLoader() (memory.QuestionLoader, error) {
	if d.cfg.Quiz.Source == config.SourcePostgres {
		if d.pool == nil {
			return nil, errors.New("quiz.source is postgres but postgres.url is not set")
		}
		return pgstore.NewQuestionLoader(d.pool), nil
	}
	return file.NewQuestionLoader(d.cfg.Quiz.Source)
}

func (d *deps) questionRepository() (app.QuestionRepository, error) {
	loader, err := d.questionLoader()
	if err != nil {
		return nil, err
	}
	ttl := config.TTLDuration(d.cfg.Quiz.TTL, 10*time.Minute)
	if d.redis != nil {
		return redisstore.NewQuestionRepository(d.redis, loader, ttl), nil
	}
	return memory.NewQuestionRepository(loader, ttl), nil
}

func (d *deps) attemptRepository() app.AttemptRepository {
	ttl := config.TTLDuration(d.cfg.Redis.TTL, 30*time.Minute)
	if d.redis != nil {
		return redisstore.NewAttemptStore(d.redis, ttl)
	}
	return memory.NewAttemptStore(ttl)
}

// resultStore opens the configured sink. A Sheets sink without credentials falls back
// to memory so tests can still be taken.
func (d *deps) resultStore(ctx context.Context) (app.ResultStore, error) {
	switch d.cfg.Results.Store {
	case config.StorePostgres:
		if d.db == nil {
			return nil, errors.New("results.store is postgres but postgres.url is not set")
		}
		return pgstore.NewResultStore(d.db), nil
	case config.StoreSQLite:
		store, err := sqlite.Open(d.cfg.Results.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.closer = append(d.closer, store.Close)
		return store, nil
	case config.StoreXLSX:
		return xlsx.NewResultStore(d.cfg.Results.XLSXPath), nil
	case config.StoreSheets:
		store, err := d.sheetsStore(ctx)
		if err != nil {
			d.log.Warn("google sheets not available, keeping results in memory", zap.Error(err))
			return memory.NewResultStore(), nil
		}
		return store, nil
	default:
		return memory.NewResultStore(), nil
	}
}

func (d *deps) sheetsStore(ctx context.Context) (*gsheets.ResultStore, error) {
	var opt option.ClientOption
	if path := d.cfg.Sheets.CredentialsFile; path != "" {
		creds, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(creds)
	} else {
		creds, missing, err := config.GoogleCredentialsFromEnv(nil)
		if err != nil {
			d.log.Warn("missing google credential variables", zap.Strings("missing", missing))
			return nil, err
		}
		opt = option.WithCredentialsJSON(creds)
	}
	return gsheets.NewResultStore(ctx, d.cfg.Sheets.SpreadsheetID, d.cfg.Sheets.Range, opt)
}

func (d *deps) settings() (app.Settings, error) {
	tieBreak, err := app.TieBreakByName(d.cfg.Results.TieBreak)
	if err != nil {
		return app.Settings{}, err
	}
	return app.Settings{
		TestDuration: config.TTLDuration(d.cfg.Quiz.Duration, app.DefaultTestDuration),
		TieBreak:     tieBreak,
	}, nil
}

func (d *deps) quizService(ctx context.Context) (*app.QuizService, error) {
	questions, err := d.questionRepository()
	if err != nil {
		return nil, err
	}
	results, err := d.resultStore(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := d.settings()
	if err != nil {
		return nil, err
	}
	return app.NewQuizService(questions, d.attemptRepository(), results, settings, d.log), nil
}
