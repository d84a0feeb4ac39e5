package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionsKey holds the JSON-encoded question bank.
const QuestionsKey = "quiz:questions"

// QuestionLoader fetches the question bank from a backing store (file, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionRepository caches the question bank in Redis so every instance shares one
// copy, and falls back to the loader on cache miss.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := r.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(QuestionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(ctx); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		// a non-positive ttl disables caching, as in the memory repository
		if r.ttl <= 0 {
			return questions, nil
		}
		payload, err := json.Marshal(questions)
		if err == nil {
			// best-effort: a Redis outage still serves the freshly loaded bank
			_ = r.client.Set(ctx, QuestionsKey, payload, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate removes the cached bank, e.g. after an import.
func (r *QuestionRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, QuestionsKey).Err()
}

func (r *QuestionRepository) cached(ctx context.Context) ([]domain.Question, bool) {
	payload, err := r.client.Get(ctx, QuestionsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(payload, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
