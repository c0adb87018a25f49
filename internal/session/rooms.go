package session

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/quiz"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
)

const (
	msgSessionNotFound = "Session not found"
	statusCreated      = "CREATED"
)

// CreatedRoom is returned to whoever creates a room over HTTP.
type CreatedRoom struct {
	RoomID    string    `json:"roomId"`
	RoomCode  string    `json:"roomCode"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RoomInfo is the lobby preview of a room.
type RoomInfo struct {
	RoomCode  string `json:"roomCode"`
	QuizID    string `json:"quizId"`
	QuizTitle string `json:"quizTitle"`
	Status    string `json:"status"`
}

// CreateRoom reserves a code for a new room bound to quizID and warms the room's quiz cache.
func (s *Service) CreateRoom(ctx context.Context, quizID string) (*CreatedRoom, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	roomID := uuid.NewString()
	alloc, err := s.codes.Allocate(ctx, roomID, CreateCodeLength, s.opts.CodeTTL)
	if errs.HasCode(err, errs.CodeExhausted) {
		s.logger.Warn().Int("length", CreateCodeLength).Msg("short code space exhausted, retrying with a longer code")
		alloc, err = s.codes.Allocate(ctx, roomID, CreateCodeLength+1, s.opts.CodeTTL)
	}
	if err != nil {
		return nil, err
	}

	meta := room.Meta{
		RoomID:    roomID,
		RoomCode:  alloc.Code,
		QuizID:    q.ID,
		QuizTitle: q.Title,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.store.SaveMeta(ctx, meta); err != nil {
		return nil, errs.Internal(err)
	}
	if err := s.quizzes.Remember(ctx, alloc.Code, *q); err != nil {
		s.roomLogger(roomID).Warn().Err(err).Msg("failed to cache room quiz")
	}

	roomsCreatedTotal.Inc()
	s.roomLogger(roomID).Info().Str("room_code", alloc.Code).Str("quiz_id", q.ID).Msg("room created")

	return &CreatedRoom{
		RoomID:    roomID,
		RoomCode:  alloc.Code,
		QuizID:    q.ID,
		QuizTitle: q.Title,
		ExpiresAt: alloc.ExpiresAt,
	}, nil
}

// RoomInfo reports a room's quiz and phase. Rooms without a session report CREATED.
func (s *Service) RoomInfo(ctx context.Context, code string) (*RoomInfo, error) {
	code = roomcode.Normalize(code)
	roomID, err := s.codes.Resolve(ctx, code)
	if errs.HasCode(err, errs.CodeNotFound) {
		return nil, errs.NotFound(msgSessionNotFound)
	}
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, roomID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	meta, err := s.store.GetMeta(ctx, roomID)
	if err != nil {
		return nil, errs.Internal(err)
	}

	info := &RoomInfo{RoomCode: code}
	switch {
	case session != nil:
		info.QuizID, info.QuizTitle, info.Status = session.QuizID, session.QuizTitle, string(session.Phase)
		if info.QuizTitle == "" && meta != nil {
			info.QuizTitle = meta.QuizTitle
		}
	case meta != nil:
		info.QuizID, info.QuizTitle, info.Status = meta.QuizID, meta.QuizTitle, statusCreated
	default:
		return nil, errs.NotFound(msgSessionNotFound)
	}
	return info, nil
}

// RoomHistory returns the archived sessions played under a code, newest first.
func (s *Service) RoomHistory(ctx context.Context, code string) ([]room.FinishedSessionSnapshot, error) {
	ids, err := s.store.RoomSessions(ctx, roomcode.Normalize(code))
	if err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]room.FinishedSessionSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.store.ArchivedSnapshot(ctx, id)
		if err != nil {
			return nil, errs.Internal(err)
		}
		if snap != nil {
			out = append(out, *snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt > out[j].EndedAt })
	return out, nil
}

// ArchivedSession returns one archived session.
func (s *Service) ArchivedSession(ctx context.Context, sessionID string) (*room.FinishedSessionSnapshot, error) {
	if sessionID == "" {
		return nil, errs.Validation("sessionId is required")
	}
	snap, err := s.store.ArchivedSnapshot(ctx, sessionID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if snap == nil {
		return nil, errs.NotFound(msgSessionNotFound)
	}
	return snap, nil
}

// Quizzes lists the quiz catalog.
func (s *Service) Quizzes(ctx context.Context) ([]quiz.QuizSummary, error) {
	return s.quizzes.List(ctx)
}
