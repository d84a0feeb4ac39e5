package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question bank from a backing source (CSV/JSON file, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionRepository caches the question bank with TTL to avoid re-reading the source per participant.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	cached  []domain.Question
	expires time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only.
func (r *QuestionRepository) WithClock(clock func() time.Time) *QuestionRepository {
	r.clock = clock
	return r
}

func (r *QuestionRepository) GetQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := r.fresh(r.clock()); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do("questions", func() (interface{}, error) {
		now := r.clock()
		if questions, ok := r.fresh(now); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = questions
		r.expires = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank so the next read goes to the loader.
func (r *QuestionRepository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.expires = time.Time{}
	r.mu.Unlock()
}

func (r *QuestionRepository) fresh(now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached != nil && r.expires.After(now) {
		return r.cached, true
	}
	return nil, false
}

// ttlWithJitter is only called under singleflight, so rnd is not shared.
func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed bank (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}
