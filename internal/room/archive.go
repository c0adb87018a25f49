package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	archiveIndexKey   = "quiz:session:index"
	archivePendingKey = "quiz:session:pending"
)

func archiveKey(sessionID string) string {
	return fmt.Sprintf("quiz:session:%s", sessionID)
}

func roomSessionsKey(roomCode string) string {
	return fmt.Sprintf("quiz:room_sessions:%s", roomCode)
}

// ArchiveSnapshot stores an ended session in the archive index and queues it for the durable archive.
func (s *Store) ArchiveSnapshot(ctx context.Context, snap FinishedSessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, archiveKey(snap.SessionID), data, 0)
	pipe.ZAdd(ctx, archiveIndexKey, redis.Z{Score: float64(snap.EndedAt), Member: snap.SessionID})
	if snap.RoomCode != "" {
		pipe.SAdd(ctx, roomSessionsKey(snap.RoomCode), snap.SessionID)
	}
	pipe.SAdd(ctx, archivePendingKey, snap.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	return nil
}

// ArchivedSnapshot returns an archived session, or nil if unknown.
func (s *Store) ArchivedSnapshot(ctx context.Context, sessionID string) (*FinishedSessionSnapshot, error) {
	data, err := s.redis.Get(ctx, archiveKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap FinishedSessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// RecentSessions lists archived session ids, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.redis.ZRevRange(ctx, archiveIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// RoomSessions lists the archived session ids played under a room code.
func (s *Store) RoomSessions(ctx context.Context, roomCode string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, roomSessionsKey(roomCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list room sessions: %w", err)
	}
	return ids, nil
}

// PendingArchive returns up to limit session ids still waiting for the durable archive.
func (s *Store) PendingArchive(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.redis.SRandMemberN(ctx, archivePendingKey, int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending archive: %w", err)
	}
	return ids, nil
}

// MarkArchived removes a session from the pending set.
func (s *Store) MarkArchived(ctx context.Context, sessionID string) error {
	if err := s.redis.SRem(ctx, archivePendingKey, sessionID).Err(); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	return nil
}
