package room

import (
	"sort"
	"time"
)

// Phase is the session state machine's current state.
type Phase string

const (
	PhaseLobby            Phase = "LOBBY"
	PhaseQuestionActive   Phase = "QUESTION_ACTIVE"
	PhaseQuestionRevealed Phase = "QUESTION_REVEALED"
	PhaseEnded            Phase = "ENDED"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseQuestionActive, PhaseQuestionRevealed, PhaseEnded:
		return true
	}
	return false
}

// Question is the runtime shape of a quiz question. CorrectAnswer is a zero-based option index.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question_text"`
	Answers       []string `json:"answers"`
	CorrectAnswer int      `json:"correct_answer"`
	Position      int      `json:"position"`
}

// PublicQuestion is what players see while a question is open.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Text     string   `json:"question_text"`
	Answers  []string `json:"answers"`
	Position int      `json:"position"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Answers: q.Answers, Position: q.Position}
}

// IsCorrect reports whether option is the right answer. Out of range options are never correct.
func (q Question) IsCorrect(option int) bool {
	return option >= 0 && option < len(q.Answers) && option == q.CorrectAnswer
}

// Session is the authoritative live state of one room.
type Session struct {
	SchemaVersion int        `json:"schemaVersion"`
	SessionID     string     `json:"sessionId"`
	RoomCode      string     `json:"roomCode"`
	QuizID        string     `json:"quizId"`
	QuizTitle     string     `json:"quizTitle,omitempty"`
	Phase         Phase      `json:"phase"`
	QuestionIndex int        `json:"questionIndex"`
	StartedAt     int64      `json:"startedAt,omitempty"`
	DurationMs    int64      `json:"durationMs,omitempty"`
	Questions     []Question `json:"questions"`
	CreatedAt     int64      `json:"createdAt"`
	EndedAt       int64      `json:"endedAt,omitempty"`
}

// CurrentQuestion returns the question at QuestionIndex, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.QuestionIndex], true
}

// RemainingMs is the time left on the active question at now, floored at 0.
func (s *Session) RemainingMs(now time.Time) int64 {
	if s.Phase != PhaseQuestionActive || s.DurationMs <= 0 {
		return 0
	}
	left := s.StartedAt + s.DurationMs - now.UnixMilli()
	if left < 0 {
		return 0
	}
	return left
}

// VisibleQuestions is how many questions count toward a scoreboard shown now. The open
// question stays hidden until it is revealed.
func (s *Session) VisibleQuestions() int {
	if s.Phase == PhaseQuestionActive && s.QuestionIndex >= 0 && s.QuestionIndex < len(s.Questions) {
		return s.QuestionIndex
	}
	return len(s.Questions)
}

// Meta is written when a room is created over HTTP, before any host connects.
type Meta struct {
	RoomID    string `json:"roomId"`
	RoomCode  string `json:"roomCode"`
	QuizID    string `json:"quizId"`
	QuizTitle string `json:"quizTitle"`
	CreatedAt int64  `json:"createdAt"`
}

// Answer is the write-once record for one (questionIndex, playerId) pair.
type Answer struct {
	OptionIndex int   `json:"optionIndex"`
	Points      int   `json:"points"`
	SubmittedAt int64 `json:"submittedAt"`
}

// ScoreboardEntry is derived, never stored on its own.
type ScoreboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// SortScoreboard orders by score, then name, then id so ties are stable.
func SortScoreboard(entries []ScoreboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
}

// FinishedSessionSnapshot is the archived projection of an ended session.
type FinishedSessionSnapshot struct {
	SessionID  string            `json:"sessionId"`
	RoomCode   string            `json:"roomCode"`
	QuizID     string            `json:"quizId"`
	CreatedAt  int64             `json:"createdAt"`
	EndedAt    int64             `json:"endedAt"`
	Questions  []Question        `json:"questions"`
	Scoreboard []ScoreboardEntry `json:"scoreboard"`
}
