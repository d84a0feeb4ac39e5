package app

import (
	"fmt"
	"sort"

	"mcq-quiz-service/internal/domain"
)

// TieBreak orders results that have the same score. Compare returns a negative
// number when a ranks ahead of b, a positive number when b does, 0 otherwise.
type TieBreak struct {
	Name    string
	Compare func(a, b domain.Result) int
}

// TieBreakTimeSpent ranks faster completions first.
var TieBreakTimeSpent = TieBreak{
	Name: "time_spent",
	Compare: func(a, b domain.Result) int {
		return a.TimeSpent - b.TimeSpent
	},
}

// TieBreakTimestamp ranks earlier submissions first.
var TieBreakTimestamp = TieBreak{
	Name: "timestamp",
	Compare: func(a, b domain.Result) int {
		return a.Timestamp.Compare(b.Timestamp)
	},
}

// TieBreakByName resolves a configured tie-break. An empty name selects time_spent.
func TieBreakByName(name string) (TieBreak, error) {
	switch name {
	case "", TieBreakTimeSpent.Name:
		return TieBreakTimeSpent, nil
	case TieBreakTimestamp.Name:
		return TieBreakTimestamp, nil
	default:
		return TieBreak{}, fmt.Errorf("%w: %q", domain.ErrUnknownTieBreak, name)
	}
}

// Rank orders results by score (highest first) and then by the tie-break, and
// numbers them 1..n. The sort is stable so equal entries keep their input order.
// The input slice is not modified.
func Rank(results []domain.Result, tb TieBreak) []domain.RankedResult {
	ranked := make([]domain.RankedResult, len(results))
	for i, r := range results {
		ranked[i] = domain.RankedResult{
			Result:     r,
			Percentage: Percentage(r.Score, r.TotalQuestions),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Result, ranked[j].Result
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if tb.Compare == nil {
			return false
		}
		return tb.Compare(a, b) < 0
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Unrank recovers the underlying results of a leaderboard, in leaderboard order.
func Unrank(ranked []domain.RankedResult) []domain.Result {
	out := make([]domain.Result, len(ranked))
	for i, r := range ranked {
		out[i] = r.Result
	}
	return out
}
