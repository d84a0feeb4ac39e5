package memory

import (
	"context"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Attempts older than ttl are treated as missing and pruned on write.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]domain.Attempt),
	}
}

// WithClock is test-only.
func (s *AttemptStore) WithClock(clock func() time.Time) *AttemptStore {
	s.clock = clock
	return s
}

func (s *AttemptStore) Save(_ context.Context, attempt domain.Attempt) error {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.attempts {
		if s.expired(a, now) {
			delete(s.attempts, id)
		}
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok || s.expired(attempt, s.clock()) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, id)
	return nil
}

// Len reports how many attempts are held, expired or not.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *AttemptStore) expired(a domain.Attempt, now time.Time) bool {
	return s.ttl > 0 && now.Sub(a.IssuedAt) > s.ttl
}
