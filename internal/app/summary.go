package app

import "mcq-quiz-service/internal/domain"

// Summarize computes participant statistics over a ranked collection.
// The winner is the first entry.
func Summarize(ranked []domain.RankedResult) domain.Summary {
	n := len(ranked)
	if n == 0 {
		return domain.Summary{}
	}

	var scoreSum, pctSum int
	highest := ranked[0].Score
	fastest := ranked[0].TimeSpent
	for _, r := range ranked {
		scoreSum += r.Score
		pctSum += r.Percentage
		if r.Score > highest {
			highest = r.Score
		}
		if r.TimeSpent < fastest {
			fastest = r.TimeSpent
		}
	}

	winner := ranked[0]
	return domain.Summary{
		Participants:      n,
		AverageScore:      roundDiv(scoreSum, n),
		AveragePercentage: roundDiv(pctSum, n),
		HighestScore:      highest,
		FastestTime:       fastest,
		Winner:            &winner,
	}
}

func roundDiv(sum, n int) int {
	if n == 0 || sum <= 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}
