package scoring

import (
	"time"
)

// ScoringConfig holds configurable scoring constants.
type ScoringConfig struct {
	BaseScore int // default: 1000; the speed bonus is capped at the same value
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseScore: 1000,
	}
}

// Engine computes server-side scores. It has no side effects.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	if config.BaseScore <= 0 {
		config.BaseScore = DefaultScoringConfig().BaseScore
	}
	return &Engine{config: config}
}

// Submission is one answer as seen by the engine.
type Submission struct {
	StartedAt   time.Time
	Duration    time.Duration
	SubmittedAt time.Time
	IsCorrect   bool
}

// Late reports whether the submission arrived after the question closed.
func (s Submission) Late() bool {
	return s.SubmittedAt.After(s.StartedAt.Add(s.Duration))
}

// CalculateScore computes points for a single answer.
// Formula: base + base * remaining/duration
// - base: always awarded if correct
// - time bonus: decays linearly from base (instant answer) to 0 (at the deadline)
func (e *Engine) CalculateScore(isCorrect bool, timeRemaining, questionDuration time.Duration) int {
	if !isCorrect {
		return 0
	}

	score := e.config.BaseScore

	if questionDuration > 0 {
		timeRatio := float64(timeRemaining) / float64(questionDuration)
		if timeRatio > 1.0 {
			timeRatio = 1.0
		}
		if timeRatio < 0.0 {
			timeRatio = 0.0
		}
		score += int(float64(e.config.BaseScore) * timeRatio)
	}

	return score
}

// Score scores a submission. Late submissions must be rejected by the caller before scoring;
// here they simply earn no bonus.
func (e *Engine) Score(s Submission) int {
	remaining := s.StartedAt.Add(s.Duration).Sub(s.SubmittedAt)
	return e.CalculateScore(s.IsCorrect, remaining, s.Duration)
}

// Base returns the configured base score.
func (e *Engine) Base() int {
	return e.config.BaseScore
}
