package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

const insertSessionSQL = `INSERT INTO quiz_sessions (id, room_code, quiz_id, created_at, ended_at, questions, scoreboard)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// SessionRepository is the durable archive of finished sessions.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveFinishedSession inserts the snapshot. Saving the same session twice is a no-op.
func (r *SessionRepository) SaveFinishedSession(ctx context.Context, snap room.FinishedSessionSnapshot) error {
	questions, err := json.Marshal(snap.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	scoreboard, err := json.Marshal(snap.Scoreboard)
	if err != nil {
		return fmt.Errorf("marshal scoreboard: %w", err)
	}

	_, err = r.db.Exec(ctx, insertSessionSQL,
		snap.SessionID,
		snap.RoomCode,
		snap.QuizID,
		time.UnixMilli(snap.CreatedAt).UTC(),
		time.UnixMilli(snap.EndedAt).UTC(),
		questions,
		scoreboard,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", snap.SessionID, err)
	}
	return nil
}
