package services

import (
	"testing"
	"time"
)

func TestScorerScore(t *testing.T) {
	tests := []struct {
		name    string
		window  time.Duration
		correct bool
		elapsed float64
		limit   float64
		max     int
		want    int
	}{
		{name: "incorrect earns nothing", window: 30 * time.Second, correct: false, elapsed: 1, limit: 20, max: 1000, want: 0},
		{name: "instant answer earns full points", window: 30 * time.Second, correct: true, elapsed: 0, limit: 20, max: 1000, want: 1000},
		{name: "fixed window decay", window: 30 * time.Second, correct: true, elapsed: 3, limit: 20, max: 1000, want: 900},
		{name: "fixed window ignores question limit", window: 30 * time.Second, correct: true, elapsed: 15, limit: 60, max: 1000, want: 500},
		{name: "beyond window floors at zero", window: 30 * time.Second, correct: true, elapsed: 45, limit: 60, max: 1000, want: 0},
		{name: "question limit window", window: 0, correct: true, elapsed: 5, limit: 20, max: 1000, want: 750},
		{name: "rounds to nearest", window: 30 * time.Second, correct: true, elapsed: 1, limit: 30, max: 100, want: 97},
		{name: "negative elapsed clamps", window: 30 * time.Second, correct: true, elapsed: -4, limit: 30, max: 100, want: 100},
		{name: "no window and no limit", window: 0, correct: true, elapsed: 12, limit: 0, max: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewScorer(tt.window).Score(tt.correct, tt.elapsed, tt.limit, tt.max)
			if got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScorerMonotonicInElapsed(t *testing.T) {
	for _, window := range []time.Duration{0, 10 * time.Second, DefaultScoreDecayWindow} {
		s := NewScorer(window)
		prev := s.Score(true, 0, 20, 1000)
		for elapsed := 0.25; elapsed <= 40; elapsed += 0.25 {
			got := s.Score(true, elapsed, 20, 1000)
			if got > prev {
				t.Fatalf("window %v: Score(%v) = %d exceeds earlier %d", window, elapsed, got, prev)
			}
			if got < 0 {
				t.Fatalf("window %v: Score(%v) = %d is negative", window, elapsed, got)
			}
			if wrong := s.Score(false, elapsed, 20, 1000); wrong != 0 {
				t.Fatalf("window %v: incorrect Score(%v) = %d, want 0", window, elapsed, wrong)
			}
			prev = got
		}
	}
}
