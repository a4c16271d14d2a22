package services

import (
	"math"
	"time"
)

// DefaultScoreDecayWindow is the fixed normalization window for the speed bonus.
const DefaultScoreDecayWindow = 30 * time.Second

// DefaultMaxPoints is awarded for an instant correct answer when a question sets none.
const DefaultMaxPoints = 1000

// Scorer awards points for an answer, decaying linearly with elapsed time.
//
// With a positive Window the decay runs over that fixed window regardless of
// the question's configured limit, so a correct answer on a 60s question that
// arrives after 30s earns nothing. A zero Window decays over the question's own
// time limit instead.
type Scorer struct {
	Window time.Duration
}

func NewScorer(window time.Duration) Scorer {
	return Scorer{Window: window}
}

// Score returns round(maxPoints * max(0, 1 - elapsed/window)) for correct
// answers and 0 otherwise.
func (s Scorer) Score(isCorrect bool, elapsedSeconds, timeLimitSeconds float64, maxPoints int) int {
	if !isCorrect || maxPoints <= 0 {
		return 0
	}

	window := s.Window.Seconds()
	if window <= 0 {
		window = timeLimitSeconds
	}
	if window <= 0 {
		return maxPoints
	}

	if elapsedSeconds < 0 || math.IsNaN(elapsedSeconds) {
		elapsedSeconds = 0
	}

	factor := math.Max(0, 1-elapsedSeconds/window)
	return int(math.Round(float64(maxPoints) * factor))
}
