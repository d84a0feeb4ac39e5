package memory

import (
	"context"
	"sync"

	"mcq-quiz-service/internal/domain"
)

// ResultStore keeps results in process memory. It backs deployments without a
// spreadsheet or database and is the fallback when those are not configured.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) AppendResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *ResultStore) ClearResults(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	return nil
}
