package app_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
)

func TestShuffleIsPermutation(t *testing.T) {
	shuffler := app.NewShufflerWithSource(rand.NewSource(1))

	for n := 0; n < 30; n++ {
		questions := numbered(n)
		shuffled := shuffler.Shuffle(questions)

		require.Len(t, shuffled, n)
		ids := make([]int, n)
		for i, q := range shuffled {
			ids[i] = q.ID
			require.Equal(t, questions[q.ID-1], q, "question mutated")
		}
		sort.Ints(ids)
		for i, id := range ids {
			require.Equal(t, i+1, id)
		}
	}
}

func TestShuffleLeavesInputUntouched(t *testing.T) {
	questions := numbered(10)
	_ = app.NewShuffler().Shuffle(questions)

	for i, q := range questions {
		assert.Equal(t, i+1, q.ID)
	}
}

func TestShuffleIsRoughlyUniform(t *testing.T) {
	const (
		n      = 4
		trials = 40000
	)
	shuffler := app.NewShufflerWithSource(rand.NewSource(42))
	questions := numbered(n)

	var counts [n][n]int // counts[id-1][position]
	for i := 0; i < trials; i++ {
		for pos, q := range shuffler.Shuffle(questions) {
			counts[q.ID-1][pos]++
		}
	}

	expected := trials / n
	tolerance := expected / 20
	for id := range counts {
		for pos, got := range counts[id] {
			assert.InDeltaf(t, expected, got, float64(tolerance), "question %d at position %d", id+1, pos)
		}
	}
}

func TestShuffleProducesEveryPermutation(t *testing.T) {
	shuffler := app.NewShufflerWithSource(rand.NewSource(3))
	questions := numbered(3)

	seen := map[[3]int]int{}
	for i := 0; i < 6000; i++ {
		s := shuffler.Shuffle(questions)
		seen[[3]int{s[0].ID, s[1].ID, s[2].ID}]++
	}

	require.Len(t, seen, 6)
	for perm, got := range seen {
		assert.InDeltaf(t, 1000, got, 150, "permutation %v", perm)
	}
}

func numbered(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{
			ID:            i + 1,
			Prompt:        "question",
			Options:       domain.Options{A: "a", B: "b", C: "c", D: "d"},
			CorrectAnswer: "a",
		}
	}
	return out
}
