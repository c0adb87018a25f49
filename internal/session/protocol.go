package session

import (
	"encoding/json"
	"strings"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

// Inbound frame types.
const (
	TypeCreateSession = "host:create_session"
	TypeStartQuestion = "host:start_question"
	TypeNextQuestion  = "host:next_question"
	TypeRevealAnswer  = "host:reveal_answer"
	TypeEndSession    = "host:end_session"
	TypePlayerJoin    = "player:join"
	TypePlayerAnswer  = "player:answer"
)

// Inbound is one decoded client frame.
type Inbound interface {
	Type() string
	// Role is the only role allowed to send the frame.
	Role() ws.Role
}

type CreateSession struct {
	QuizID    string            `json:"quizId"`
	Questions []json.RawMessage `json:"questions"`
}

type StartQuestion struct {
	QuestionIndex *int  `json:"questionIndex"`
	DurationMs    int64 `json:"durationMs"`
}

type NextQuestion struct {
	DurationMs int64 `json:"durationMs"`
}

type RevealAnswer struct {
	QuestionIndex *int `json:"questionIndex"`
}

type EndSession struct{}

type PlayerJoin struct {
	Name string `json:"name"`
}

type PlayerAnswer struct {
	QuestionIndex *int `json:"questionIndex"`
	OptionIndex   *int `json:"optionIndex"`
}

func (CreateSession) Type() string { return TypeCreateSession }
func (StartQuestion) Type() string { return TypeStartQuestion }
func (NextQuestion) Type() string  { return TypeNextQuestion }
func (RevealAnswer) Type() string  { return TypeRevealAnswer }
func (EndSession) Type() string    { return TypeEndSession }
func (PlayerJoin) Type() string    { return TypePlayerJoin }
func (PlayerAnswer) Type() string  { return TypePlayerAnswer }

func (CreateSession) Role() ws.Role { return ws.RoleHost }
func (StartQuestion) Role() ws.Role { return ws.RoleHost }
func (NextQuestion) Role() ws.Role  { return ws.RoleHost }
func (RevealAnswer) Role() ws.Role  { return ws.RoleHost }
func (EndSession) Role() ws.Role    { return ws.RoleHost }
func (PlayerJoin) Role() ws.Role    { return ws.RolePlayer }
func (PlayerAnswer) Role() ws.Role  { return ws.RolePlayer }

// Decode parses a frame by its type tag. Unknown tags and malformed frames are validation errors.
func Decode(data []byte) (Inbound, error) {
	typ, err := ws.PeekType(data)
	if err != nil {
		return nil, errs.Validation("Invalid message: %v", err)
	}

	var msg Inbound
	switch typ {
	case TypeCreateSession:
		var m CreateSession
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeStartQuestion:
		var m StartQuestion
		if err = json.Unmarshal(data, &m); err == nil && m.QuestionIndex == nil {
			return nil, errs.Validation("questionIndex is required")
		}
		msg = m
	case TypeNextQuestion:
		var m NextQuestion
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeRevealAnswer:
		var m RevealAnswer
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeEndSession:
		msg = EndSession{}
	case TypePlayerJoin:
		var m PlayerJoin
		if err = json.Unmarshal(data, &m); err == nil {
			m.Name = strings.TrimSpace(m.Name)
			if m.Name == "" {
				return nil, errs.Validation("name is required")
			}
		}
		msg = m
	case TypePlayerAnswer:
		var m PlayerAnswer
		if err = json.Unmarshal(data, &m); err == nil && (m.QuestionIndex == nil || m.OptionIndex == nil) {
			return nil, errs.Validation("questionIndex and optionIndex are required")
		}
		msg = m
	default:
		return nil, errs.Validation("Unknown event type: %s", typ)
	}
	if err != nil {
		return nil, errs.Validation("Invalid %s payload: %v", typ, err)
	}
	return msg, nil
}

// Reveal carries the correct option once a question is revealed.
type Reveal struct {
	QuestionIndex int `json:"questionIndex"`
	CorrectIndex  int `json:"correctIndex"`
}

// StateSync is the full snapshot every client receives on connect.
type StateSync struct {
	RoomCode      string                 `json:"roomCode"`
	Phase         room.Phase             `json:"phase"`
	QuestionIndex int                    `json:"questionIndex"`
	StartedAt     *int64                 `json:"startedAt"`
	DurationMs    *int64                 `json:"durationMs"`
	RemainingMs   int64                  `json:"remainingMs"`
	Question      *room.PublicQuestion   `json:"question"`
	Scoreboard    []room.ScoreboardEntry `json:"scoreboard"`
	Reveal        *Reveal                `json:"reveal"`
	PlayerID      *string                `json:"playerId"`
}

type QuestionStarted struct {
	QuestionIndex int                 `json:"questionIndex"`
	StartedAt     int64               `json:"startedAt"`
	DurationMs    int64               `json:"durationMs"`
	Question      room.PublicQuestion `json:"question"`
}

type AnswerRevealed struct {
	QuestionIndex int                    `json:"questionIndex"`
	CorrectIndex  int                    `json:"correctIndex"`
	Question      room.Question          `json:"question"`
	Scoreboard    []room.ScoreboardEntry `json:"scoreboard"`
}

type PlayerJoined struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	RoomCode   string `json:"roomCode,omitempty"`
}

type PlayerLeft struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type AnswerAck struct {
	OK            bool   `json:"ok"`
	QuestionIndex int    `json:"questionIndex"`
	Reason        string `json:"reason,omitempty"`
}

type SessionEnded struct {
	Scoreboard []room.ScoreboardEntry `json:"scoreboard"`
	SessionID  string                 `json:"sessionId"`
}

type ConnectionClosed struct {
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (StateSync) EventType() string        { return "state_sync" }
func (QuestionStarted) EventType() string  { return "question_started" }
func (AnswerRevealed) EventType() string   { return "answer_revealed" }
func (PlayerJoined) EventType() string     { return "player_joined" }
func (PlayerLeft) EventType() string       { return "player_left" }
func (AnswerAck) EventType() string        { return "answer_ack" }
func (SessionEnded) EventType() string     { return "session_ended" }
func (ConnectionClosed) EventType() string { return "connection_closed" }
func (ErrorEvent) EventType() string       { return "error" }
