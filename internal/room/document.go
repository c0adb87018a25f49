package room

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion of the session document written by this package.
//
//	0/1: untagged documents, possibly without phase, questionIndex or timing, and with
//	     questions in the catalog shape (questionText/correctAnswer).
//	2:   tagged documents in the Session shape.
const SchemaVersion = 2

// sessionDoc mirrors Session with optional fields so missing values can be told apart from zero.
type sessionDoc struct {
	SchemaVersion int               `json:"schemaVersion"`
	SessionID     string            `json:"sessionId"`
	RoomCode      string            `json:"roomCode"`
	QuizID        string            `json:"quizId"`
	QuizTitle     string            `json:"quizTitle"`
	Phase         *Phase            `json:"phase"`
	QuestionIndex *int              `json:"questionIndex"`
	StartedAt     *int64            `json:"startedAt"`
	DurationMs    *int64            `json:"durationMs"`
	Questions     []json.RawMessage `json:"questions"`
	CreatedAt     int64             `json:"createdAt"`
	EndedAt       int64             `json:"endedAt"`
}

// questionDoc accepts both the runtime and the catalog spelling of a question.
type questionDoc struct {
	ID                  json.RawMessage `json:"id"`
	Text                *string         `json:"question_text"`
	LegacyText          *string         `json:"questionText"`
	Answers             []string        `json:"answers"`
	CorrectAnswer       *int            `json:"correct_answer"`
	LegacyCorrectAnswer *int            `json:"correctAnswer"`
	Position            *int            `json:"position"`
}

// DecodeSession parses a stored session document of any known version.
func DecodeSession(data []byte) (*Session, error) {
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("session schema %d is newer than supported %d", doc.SchemaVersion, SchemaVersion)
	}
	return migrate(doc)
}

func migrate(doc sessionDoc) (*Session, error) {
	s := &Session{
		SchemaVersion: SchemaVersion,
		SessionID:     doc.SessionID,
		RoomCode:      doc.RoomCode,
		QuizID:        doc.QuizID,
		QuizTitle:     doc.QuizTitle,
		Phase:         PhaseLobby,
		QuestionIndex: -1,
		CreatedAt:     doc.CreatedAt,
		EndedAt:       doc.EndedAt,
	}

	if doc.Phase != nil {
		if !doc.Phase.Valid() {
			return nil, fmt.Errorf("session has unknown phase %q", *doc.Phase)
		}
		s.Phase = *doc.Phase
	}
	if doc.QuestionIndex != nil {
		s.QuestionIndex = *doc.QuestionIndex
	}
	if doc.StartedAt != nil {
		s.StartedAt = *doc.StartedAt
	}
	if doc.DurationMs != nil {
		s.DurationMs = *doc.DurationMs
	}

	questions, err := DecodeQuestions(doc.Questions)
	if err != nil {
		return nil, err
	}
	s.Questions = questions

	if s.QuestionIndex < -1 {
		s.QuestionIndex = -1
	}
	if s.QuestionIndex >= len(s.Questions) {
		s.QuestionIndex = len(s.Questions) - 1
	}
	// An open question without timing can never accept answers; treat it as revealed.
	if s.Phase == PhaseQuestionActive && (s.QuestionIndex < 0 || s.StartedAt == 0 || s.DurationMs <= 0) {
		if s.QuestionIndex < 0 {
			s.Phase = PhaseLobby
		} else {
			s.Phase = PhaseQuestionRevealed
		}
	}
	if s.Phase == PhaseQuestionRevealed && s.QuestionIndex < 0 {
		s.Phase = PhaseLobby
	}

	return s, nil
}

// DecodeQuestions parses questions in either the runtime or the catalog spelling.
func DecodeQuestions(raws []json.RawMessage) ([]Question, error) {
	out := make([]Question, 0, len(raws))
	for i, raw := range raws {
		q, err := decodeQuestion(raw, i)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func decodeQuestion(raw json.RawMessage, index int) (Question, error) {
	var doc questionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Question{}, err
	}

	q := Question{
		ID:       rawID(doc.ID),
		Answers:  doc.Answers,
		Position: index,
	}
	switch {
	case doc.Text != nil:
		q.Text = *doc.Text
	case doc.LegacyText != nil:
		q.Text = *doc.LegacyText
	}
	switch {
	case doc.CorrectAnswer != nil:
		q.CorrectAnswer = *doc.CorrectAnswer
	case doc.LegacyCorrectAnswer != nil:
		q.CorrectAnswer = *doc.LegacyCorrectAnswer
	default:
		return Question{}, fmt.Errorf("missing correct answer")
	}
	if doc.Position != nil {
		q.Position = *doc.Position
	}
	if q.Answers == nil {
		q.Answers = []string{}
	}
	return q, nil
}

// rawID accepts string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// EncodeSession stamps the current schema version and serializes s.
func EncodeSession(s *Session) ([]byte, error) {
	s.SchemaVersion = SchemaVersion
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	return json.Marshal(s)
}
