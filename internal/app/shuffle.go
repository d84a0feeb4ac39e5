package app

import (
	"math/rand"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"
)

// Shuffler produces uniformly random permutations of a question list.
// It is safe for concurrent use.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() *Shuffler {
	return NewShufflerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewShufflerWithSource is used by tests that need a fixed source.
func NewShufflerWithSource(src rand.Source) *Shuffler {
	return &Shuffler{rnd: rand.New(src)}
}

// Shuffle returns a Fisher-Yates permutation of questions. The input slice is not modified.
func (s *Shuffler) Shuffle(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
