package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/session/scoring"
)

// liveSession loads the room's session for a host transition.
func (s *Service) liveSession(ctx context.Context, roomID string) (*room.Session, error) {
	session, err := s.store.GetSession(ctx, roomID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if session == nil {
		return nil, errs.Rejected("Session not created yet")
	}
	if session.Phase == room.PhaseEnded {
		return nil, errs.Rejected(msgQuizEnded)
	}
	return session, nil
}

func (s *Service) save(ctx context.Context, roomID string, session *room.Session) error {
	if err := s.store.SaveSession(ctx, roomID, session); err != nil {
		return errs.Internal(err)
	}
	transitionsTotal.WithLabelValues(string(session.Phase)).Inc()
	return nil
}

// CreateSession sets the room's question list and resets it to the lobby.
func (s *Service) CreateSession(ctx context.Context, peer *Peer, m CreateSession) error {
	current, err := s.store.GetSession(ctx, peer.RoomID)
	if err != nil {
		return errs.Internal(err)
	}
	if current != nil && current.Phase == room.PhaseEnded {
		return errs.Rejected(msgQuizEnded)
	}
	if current != nil && current.Phase != room.PhaseLobby {
		return errs.Rejected("Session already started")
	}

	loaded, err := s.loadQuestions(ctx, peer, current, m)
	if err != nil {
		return err
	}

	session := &room.Session{
		SessionID:     uuid.NewString(),
		RoomCode:      peer.RoomCode,
		QuizID:        loaded.quizID,
		QuizTitle:     loaded.title,
		Phase:         room.PhaseLobby,
		QuestionIndex: -1,
		Questions:     loaded.questions,
		CreatedAt:     s.now().UnixMilli(),
	}
	if current != nil {
		if current.SessionID != "" {
			session.SessionID = current.SessionID
		}
		if current.CreatedAt > 0 {
			session.CreatedAt = current.CreatedAt
		}
	}
	if err := s.save(ctx, peer.RoomID, session); err != nil {
		return err
	}

	snapshot, err := s.stateSync(ctx, peer.RoomID, peer.RoomCode, session, "")
	if err != nil {
		return errs.Internal(err)
	}
	s.hub.Broadcast(peer.RoomID, snapshot, nil)

	s.roomLogger(peer.RoomID).Info().
		Str("session_id", session.SessionID).
		Str("quiz_id", session.QuizID).
		Int("questions", len(session.Questions)).
		Msg("session created")
	return nil
}

type loadedQuiz struct {
	quizID    string
	title     string
	questions []room.Question
}

// loadQuestions takes inline questions when given, else the room's quiz.
func (s *Service) loadQuestions(ctx context.Context, peer *Peer, current *room.Session, m CreateSession) (loadedQuiz, error) {
	out := loadedQuiz{quizID: m.QuizID}

	meta, err := s.store.GetMeta(ctx, peer.RoomID)
	if err != nil {
		s.roomLogger(peer.RoomID).Warn().Err(err).Msg("failed to read room meta")
	}
	if out.quizID == "" && current != nil {
		out.quizID = current.QuizID
	}
	if meta != nil {
		if out.quizID == "" {
			out.quizID = meta.QuizID
		}
		if out.quizID == meta.QuizID {
			out.title = meta.QuizTitle
		}
	}

	if len(m.Questions) > 0 {
		questions, err := room.DecodeQuestions(m.Questions)
		if err != nil {
			return out, errs.Validation("Invalid questions: %v", err)
		}
		out.questions = questions
	} else {
		q, err := s.quizzes.Questions(ctx, peer.RoomCode, out.quizID)
		if err != nil {
			return out, err
		}
		out.quizID, out.title, out.questions = q.ID, q.Title, q.Questions
	}

	if len(out.questions) == 0 {
		return out, errs.Validation("Quiz has no questions")
	}
	for i, q := range out.questions {
		if len(q.Answers) < 2 {
			return out, errs.Validation("Question %d needs at least two answers", i)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Answers) {
			return out, errs.Validation("Question %d has no valid correct answer", i)
		}
	}
	return out, nil
}

// StartQuestion opens a question chosen by the host. Only allowed from the lobby.
func (s *Service) StartQuestion(ctx context.Context, peer *Peer, m StartQuestion) error {
	session, err := s.liveSession(ctx, peer.RoomID)
	if err != nil {
		return err
	}
	if session.Phase != room.PhaseLobby {
		return errs.Rejected("Questions can only be started from the lobby")
	}

	index := *m.QuestionIndex
	if index < 0 {
		return errs.Validation("questionIndex must not be negative")
	}
	if index >= len(session.Questions) {
		return errs.Rejected("No more questions")
	}
	return s.openQuestion(ctx, peer, session, index, m.DurationMs)
}

// NextQuestion opens the question after the current one.
func (s *Service) NextQuestion(ctx context.Context, peer *Peer, m NextQuestion) error {
	session, err := s.liveSession(ctx, peer.RoomID)
	if err != nil {
		return err
	}
	if session.Phase != room.PhaseLobby && session.Phase != room.PhaseQuestionRevealed {
		return errs.Rejected("Reveal the current question before moving on")
	}

	next := session.QuestionIndex + 1
	if next >= len(session.Questions) {
		if session.QuestionIndex < 0 {
			return errs.Rejected("No more questions")
		}
		return errs.Rejected("This was the last question")
	}
	return s.openQuestion(ctx, peer, session, next, m.DurationMs)
}

func (s *Service) openQuestion(ctx context.Context, peer *Peer, session *room.Session, index int, durationMs int64) error {
	session.Phase = room.PhaseQuestionActive
	session.QuestionIndex = index
	session.StartedAt = s.now().UnixMilli()
	session.DurationMs = s.questionDuration(durationMs)

	if err := s.save(ctx, peer.RoomID, session); err != nil {
		return err
	}

	q := session.Questions[index]
	s.hub.Broadcast(peer.RoomID, QuestionStarted{
		QuestionIndex: index,
		StartedAt:     session.StartedAt,
		DurationMs:    session.DurationMs,
		Question:      q.Public(),
	}, nil)

	s.roomLogger(peer.RoomID).Info().Int("question_index", index).Int64("duration_ms", session.DurationMs).Msg("question started")
	return nil
}

// RevealAnswer closes the active question and publishes the answer with the scoreboard.
func (s *Service) RevealAnswer(ctx context.Context, peer *Peer, m RevealAnswer) error {
	session, err := s.liveSession(ctx, peer.RoomID)
	if err != nil {
		return err
	}
	if session.Phase != room.PhaseQuestionActive {
		return errs.Rejected("No active question to reveal")
	}
	if m.QuestionIndex != nil && *m.QuestionIndex != session.QuestionIndex {
		return errs.Rejected("Question %d is not the active question", *m.QuestionIndex)
	}

	session.Phase = room.PhaseQuestionRevealed
	if err := s.save(ctx, peer.RoomID, session); err != nil {
		return err
	}

	scoreboard, err := s.store.Scoreboard(ctx, peer.RoomID, len(session.Questions))
	if err != nil {
		return errs.Internal(err)
	}

	q, _ := session.CurrentQuestion()
	s.hub.Broadcast(peer.RoomID, AnswerRevealed{
		QuestionIndex: session.QuestionIndex,
		CorrectIndex:  q.CorrectAnswer,
		Question:      q,
		Scoreboard:    scoreboard,
	}, nil)
	return nil
}

// EndSession finalizes the scoreboard, archives the session, revokes the code and tears the room down.
func (s *Service) EndSession(ctx context.Context, peer *Peer) error {
	session, err := s.liveSession(ctx, peer.RoomID)
	if err != nil {
		return err
	}
	logger := s.roomLogger(peer.RoomID).With().Str("session_id", session.SessionID).Logger()

	scoreboard, err := s.store.Scoreboard(ctx, peer.RoomID, len(session.Questions))
	if err != nil {
		return errs.Internal(err)
	}

	session.Phase = room.PhaseEnded
	session.EndedAt = s.now().UnixMilli()
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	if err := s.save(ctx, peer.RoomID, session); err != nil {
		return err
	}

	code := session.RoomCode
	if code == "" {
		code = peer.RoomCode
	}
	snap := room.FinishedSessionSnapshot{
		SessionID:  session.SessionID,
		RoomCode:   code,
		QuizID:     session.QuizID,
		CreatedAt:  session.CreatedAt,
		EndedAt:    session.EndedAt,
		Questions:  session.Questions,
		Scoreboard: scoreboard,
	}
	if err := s.store.ArchiveSnapshot(ctx, snap); err != nil {
		archiveFailuresTotal.WithLabelValues("index").Inc()
		logger.Error().Err(err).Msg("failed to index archived session")
	}

	if code != "" {
		if _, err := s.codes.Revoke(ctx, code); err != nil {
			revokeFailuresTotal.Inc()
			logger.Warn().Err(err).Str("room_code", code).Msg("failed to revoke room code, it will expire")
		}
		s.quizzes.Forget(ctx, code)
	}
	if err := s.store.Cleanup(ctx, peer.RoomID, len(session.Questions)); err != nil {
		logger.Error().Err(err).Msg("failed to clean up room keys")
	}

	s.hub.Broadcast(peer.RoomID, SessionEnded{Scoreboard: scoreboard, SessionID: session.SessionID}, nil)
	logger.Info().Int("players", len(scoreboard)).Msg("session ended")

	s.saveArchive(ctx, snap)
	return nil
}

// saveArchive writes to the durable archive. Failures stay in the pending set for the sweeper.
func (s *Service) saveArchive(ctx context.Context, snap room.FinishedSessionSnapshot) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	logger := s.logger.With().Str("session_id", snap.SessionID).Logger()
	if err := s.archive.SaveFinishedSession(ctx, snap); err != nil {
		archiveFailuresTotal.WithLabelValues("durable").Inc()
		logger.Warn().Err(err).Msg("durable archive failed, left for the sweeper")
		return
	}
	if err := s.store.MarkArchived(ctx, snap.SessionID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear pending archive entry")
	}
}

// JoinPlayer is the explicit join frame of older clients. It names or renames the peer's player.
func (s *Service) JoinPlayer(ctx context.Context, peer *Peer, m PlayerJoin) error {
	session, err := s.store.GetSession(ctx, peer.RoomID)
	if err != nil {
		return errs.Internal(err)
	}
	if session == nil {
		return errs.NotFound(msgQuizNotCreated)
	}
	if session.Phase == room.PhaseEnded {
		return errs.Rejected(msgQuizEnded)
	}

	playerID := peer.PlayerID()
	if playerID == "" {
		playerID = uuid.NewString()
	}
	if err := s.store.AddPlayer(ctx, peer.RoomID, playerID, m.Name); err != nil {
		return errs.Internal(err)
	}
	peer.Conn.SetPlayer(playerID, m.Name)

	joined := PlayerJoined{PlayerID: playerID, PlayerName: m.Name, RoomCode: peer.RoomCode}
	s.send(peer, joined)
	s.hub.Broadcast(peer.RoomID, joined, peer.Conn)
	return nil
}

// SubmitAnswer records a player's answer once. Anything that cannot be recorded is acknowledged
// with ok=false and changes nothing.
func (s *Service) SubmitAnswer(ctx context.Context, peer *Peer, m PlayerAnswer) error {
	playerID := peer.PlayerID()
	if playerID == "" {
		return errs.Rejected("Player not registered")
	}
	index, option := *m.QuestionIndex, *m.OptionIndex

	reject := func(result, reason string) error {
		answersTotal.WithLabelValues(result).Inc()
		s.send(peer, AnswerAck{OK: false, QuestionIndex: index, Reason: reason})
		return nil
	}

	session, err := s.store.GetSession(ctx, peer.RoomID)
	if err != nil {
		return errs.Internal(err)
	}
	if session == nil || session.Phase != room.PhaseQuestionActive {
		return reject("not_active", "Question is not active")
	}
	if index != session.QuestionIndex {
		return reject("wrong_question", "Question is not active")
	}

	q, _ := session.CurrentQuestion()
	now := s.now()
	sub := scoring.Submission{
		StartedAt:   time.UnixMilli(session.StartedAt),
		Duration:    time.Duration(session.DurationMs) * time.Millisecond,
		SubmittedAt: now,
		IsCorrect:   q.IsCorrect(option),
	}
	if sub.Late() {
		return reject("late", "Time is up")
	}

	stored, err := s.store.RecordAnswer(ctx, peer.RoomID, index, playerID, room.Answer{
		OptionIndex: option,
		Points:      s.scoring.Score(sub),
		SubmittedAt: now.UnixMilli(),
	})
	if err != nil {
		return errs.Internal(err)
	}
	if !stored {
		return reject("duplicate", "Answer already submitted")
	}

	answersTotal.WithLabelValues("accepted").Inc()
	answerLatency.Observe(now.Sub(sub.StartedAt).Seconds())
	s.send(peer, AnswerAck{OK: true, QuestionIndex: index})
	return nil
}
