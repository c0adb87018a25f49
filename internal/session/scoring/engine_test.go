package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngine_CalculateScore(t *testing.T) {
	e := NewEngine(DefaultScoringConfig())
	d := 10 * time.Second

	tests := map[string]struct {
		correct   bool
		remaining time.Duration
		want      int
	}{
		"incorrect scores nothing":           {correct: false, remaining: d, want: 0},
		"instant answer doubles the base":    {correct: true, remaining: d, want: 2000},
		"answer at the deadline earns base":  {correct: true, remaining: 0, want: 1000},
		"half time left earns half bonus":    {correct: true, remaining: d / 2, want: 1500},
		"negative remaining is floored":      {correct: true, remaining: -time.Second, want: 1000},
		"remaining above duration is capped": {correct: true, remaining: 2 * d, want: 2000},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CalculateScore(tt.correct, tt.remaining, d))
		})
	}
}

func TestEngine_ScoreIsMonotonic(t *testing.T) {
	e := NewEngine(ScoringConfig{BaseScore: 100})
	start := time.Unix(0, 0)

	prev := 1 << 30
	for elapsed := time.Duration(0); elapsed <= 10*time.Second; elapsed += 500 * time.Millisecond {
		got := e.Score(Submission{StartedAt: start, Duration: 10 * time.Second, SubmittedAt: start.Add(elapsed), IsCorrect: true})
		assert.LessOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, 100)
		assert.LessOrEqual(t, got, 200)
		prev = got
	}
}

func TestSubmission_Late(t *testing.T) {
	start := time.Unix(100, 0)
	assert.False(t, Submission{StartedAt: start, Duration: time.Second, SubmittedAt: start.Add(time.Second)}.Late())
	assert.True(t, Submission{StartedAt: start, Duration: time.Second, SubmittedAt: start.Add(time.Second + time.Millisecond)}.Late())
}

func TestNewEngine_DefaultsBase(t *testing.T) {
	assert.Equal(t, 1000, NewEngine(ScoringConfig{}).Base())
}
