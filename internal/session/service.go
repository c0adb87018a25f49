// Package session runs the live quiz protocol: connection lifecycle, the per-room state machine and
// the room creation and lookup endpoints.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/presence"
	"github.com/gokatarajesh/quiz-rooms/internal/quiz"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
	"github.com/gokatarajesh/quiz-rooms/internal/session/scoring"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

const (
	DefaultQuestionDuration = 20 * time.Second
	// CreateCodeLength is tried first for new rooms; one longer is used when the short space is exhausted.
	CreateCodeLength = 5

	archiveTimeout = 5 * time.Second
)

// Codes allocates, resolves and revokes room codes.
type Codes interface {
	Allocate(ctx context.Context, roomID string, length int, ttl time.Duration) (roomcode.Allocation, error)
	Resolve(ctx context.Context, code string) (string, error)
	Revoke(ctx context.Context, code string) (bool, error)
}

// Archive is the durable store for finished sessions.
type Archive interface {
	SaveFinishedSession(ctx context.Context, snap room.FinishedSessionSnapshot) error
}

// Options tunes the session service.
type Options struct {
	DefaultQuestionDuration time.Duration
	CodeTTL                 time.Duration
	PresenceGrace           time.Duration
	Scoring                 scoring.ScoringConfig
}

// Service drives every room owned by this process.
type Service struct {
	store    *room.Store
	hub      *ws.Hub
	codes    Codes
	quizzes  *quiz.Catalog
	archive  Archive
	scoring  *scoring.Engine
	presence *presence.Monitor
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates the session service. It owns the host presence monitor; call Close on shutdown.
func NewService(
	store *room.Store,
	hub *ws.Hub,
	codes Codes,
	quizzes *quiz.Catalog,
	archive Archive,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.DefaultQuestionDuration <= 0 {
		opts.DefaultQuestionDuration = DefaultQuestionDuration
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = roomcode.DefaultTTL
	}

	s := &Service{
		store:   store,
		hub:     hub,
		codes:   codes,
		quizzes: quizzes,
		archive: archive,
		scoring: scoring.NewEngine(opts.Scoring),
		opts:    opts,
		now:     time.Now,
		logger:  logger.With().Str("component", "session").Logger(),
	}
	s.presence = presence.NewMonitor(store, opts.PresenceGrace, s.cancelRoom, logger)
	return s
}

// Close stops pending presence watchers.
func (s *Service) Close() {
	s.presence.Close()
}

// Peer is one accepted connection and the room it is bound to.
type Peer struct {
	RoomID   string
	RoomCode string
	Conn     *ws.Connection
}

func (p *Peer) Role() ws.Role { return p.Conn.Role() }

func (p *Peer) PlayerID() string {
	id, _ := p.Conn.Player()
	return id
}

func (p *Peer) Name() string {
	_, name := p.Conn.Player()
	return name
}

func (s *Service) roomLogger(roomID string) *zerolog.Logger {
	logger := s.logger.With().Str("room_id", roomID).Logger()
	return &logger
}

// send delivers a direct reply. A full or closed queue drops the connection.
func (s *Service) send(p *Peer, e ws.Event) {
	if err := s.hub.SendTo(p.RoomID, p.Conn, e); err != nil {
		s.roomLogger(p.RoomID).Warn().Err(err).Str("conn_id", p.Conn.ID()).Str("event", e.EventType()).Msg("direct send failed")
	}
}

// stateSync builds the full snapshot of a room for one recipient.
func (s *Service) stateSync(ctx context.Context, roomID, roomCode string, session *room.Session, playerID string) (StateSync, error) {
	out := StateSync{
		RoomCode:      roomCode,
		Phase:         room.PhaseLobby,
		QuestionIndex: -1,
		Scoreboard:    []room.ScoreboardEntry{},
	}
	if playerID != "" {
		out.PlayerID = &playerID
	}
	if session == nil {
		return out, nil
	}

	if session.RoomCode != "" {
		out.RoomCode = session.RoomCode
	}
	out.Phase = session.Phase
	out.QuestionIndex = session.QuestionIndex

	if q, ok := session.CurrentQuestion(); ok {
		pub := q.Public()
		out.Question = &pub
		if session.Phase == room.PhaseQuestionActive || session.Phase == room.PhaseQuestionRevealed {
			startedAt, durationMs := session.StartedAt, session.DurationMs
			out.StartedAt = &startedAt
			out.DurationMs = &durationMs
			out.RemainingMs = session.RemainingMs(s.now())
		}
		if session.Phase == room.PhaseQuestionRevealed {
			out.Reveal = &Reveal{QuestionIndex: session.QuestionIndex, CorrectIndex: q.CorrectAnswer}
		}
	}

	scoreboard, err := s.store.Scoreboard(ctx, roomID, session.VisibleQuestions())
	if err != nil {
		return out, err
	}
	out.Scoreboard = scoreboard
	return out, nil
}

func (s *Service) questionDuration(ms int64) int64 {
	if ms <= 0 {
		return s.opts.DefaultQuestionDuration.Milliseconds()
	}
	return ms
}
