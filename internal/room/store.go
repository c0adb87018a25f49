package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultRoomTTL     = 6 * time.Hour
	DefaultEndedTTL    = time.Hour
	DefaultPresenceTTL = 70 * time.Second
)

type StoreOptions struct {
	// RoomTTL applies to the session document, roster, answers and metadata.
	RoomTTL time.Duration
	// EndedTTL keeps an ended session document around so late joiners get "already ended".
	EndedTTL time.Duration
}

// Store keeps room state in Redis. Every key is namespaced by room id.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
	opts   StoreOptions
}

// NewStore creates a room state store backed by Redis.
func NewStore(redis *redis.Client, logger zerolog.Logger, opts StoreOptions) *Store {
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = DefaultRoomTTL
	}
	if opts.EndedTTL <= 0 {
		opts.EndedTTL = DefaultEndedTTL
	}
	return &Store{
		redis:  redis,
		logger: logger.With().Str("component", "room_store").Logger(),
		opts:   opts,
	}
}

func sessionKey(roomID string) string {
	return fmt.Sprintf("session:%s", roomID)
}

func playersKey(roomID string) string {
	return fmt.Sprintf("session:%s:players", roomID)
}

func answersKey(roomID string, questionIndex int) string {
	return fmt.Sprintf("session:%s:answers:%d", roomID, questionIndex)
}

func hostAbsentKey(roomID string) string {
	return fmt.Sprintf("session:%s:host_absent", roomID)
}

func metaKey(roomID string) string {
	return fmt.Sprintf("room:%s:meta", roomID)
}

// GetSession returns the room's session, or nil when none exists.
func (s *Store) GetSession(ctx context.Context, roomID string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session, err := DecodeSession(data)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SaveSession writes the whole document. Ended sessions get the shorter ended TTL.
func (s *Store) SaveSession(ctx context.Context, roomID string, session *Session) error {
	data, err := EncodeSession(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := s.opts.RoomTTL
	if session.Phase == PhaseEnded {
		ttl = s.opts.EndedTTL
	}
	if err := s.redis.Set(ctx, sessionKey(roomID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AddPlayer creates or renames a roster entry and refreshes the roster TTL.
func (s *Store) AddPlayer(ctx context.Context, roomID, playerID, name string) error {
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, playersKey(roomID), playerID, name)
	pipe.Expire(ctx, playersKey(roomID), s.opts.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	return nil
}

// PlayerName looks a player up by id.
func (s *Store) PlayerName(ctx context.Context, roomID, playerID string) (string, bool, error) {
	name, err := s.redis.HGet(ctx, playersKey(roomID), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get player: %w", err)
	}
	return name, true, nil
}

// FindPlayerByName returns the first roster entry with the given display name.
func (s *Store) FindPlayerByName(ctx context.Context, roomID, name string) (string, bool, error) {
	players, err := s.Players(ctx, roomID)
	if err != nil {
		return "", false, err
	}
	for id, n := range players {
		if n == name {
			return id, true, nil
		}
	}
	return "", false, nil
}

// Players returns the full roster, playerId -> name.
func (s *Store) Players(ctx context.Context, roomID string) (map[string]string, error) {
	players, err := s.redis.HGetAll(ctx, playersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// RecordAnswer stores an answer unless one already exists for the pair. It reports whether it was stored.
func (s *Store) RecordAnswer(ctx context.Context, roomID string, questionIndex int, playerID string, answer Answer) (bool, error) {
	data, err := json.Marshal(answer)
	if err != nil {
		return false, fmt.Errorf("marshal answer: %w", err)
	}

	key := answersKey(roomID, questionIndex)
	stored, err := s.redis.HSetNX(ctx, key, playerID, data).Result()
	if err != nil {
		return false, fmt.Errorf("record answer: %w", err)
	}
	if stored {
		if err := s.redis.Expire(ctx, key, s.opts.RoomTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to set answers ttl")
		}
	}
	return stored, nil
}

// Answers returns every answer recorded for a question.
func (s *Store) Answers(ctx context.Context, roomID string, questionIndex int) (map[string]Answer, error) {
	raw, err := s.redis.HGetAll(ctx, answersKey(roomID, questionIndex)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return decodeAnswers(raw, s.logger), nil
}

func decodeAnswers(raw map[string]string, logger zerolog.Logger) map[string]Answer {
	out := make(map[string]Answer, len(raw))
	for playerID, data := range raw {
		var a Answer
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			logger.Warn().Err(err).Str("player_id", playerID).Msg("skip corrupted answer")
			continue
		}
		out[playerID] = a
	}
	return out
}

// Scoreboard sums points per player over the first questionCount questions.
// Every roster member appears, including players with no answers.
func (s *Store) Scoreboard(ctx context.Context, roomID string, questionCount int) ([]ScoreboardEntry, error) {
	pipe := s.redis.Pipeline()
	rosterCmd := pipe.HGetAll(ctx, playersKey(roomID))
	answerCmds := make([]*redis.MapStringStringCmd, questionCount)
	for i := 0; i < questionCount; i++ {
		answerCmds[i] = pipe.HGetAll(ctx, answersKey(roomID, i))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load scoreboard: %w", err)
	}

	totals := make(map[string]int)
	for playerID := range rosterCmd.Val() {
		totals[playerID] = 0
	}
	for _, cmd := range answerCmds {
		for playerID, a := range decodeAnswers(cmd.Val(), s.logger) {
			totals[playerID] += a.Points
		}
	}

	roster := rosterCmd.Val()
	entries := make([]ScoreboardEntry, 0, len(totals))
	for playerID, score := range totals {
		entries = append(entries, ScoreboardEntry{
			PlayerID: playerID,
			Name:     roster[playerID],
			Score:    score,
		})
	}
	SortScoreboard(entries)
	return entries, nil
}

// MarkHostAbsent sets the presence-absence marker with ttl.
func (s *Store) MarkHostAbsent(ctx context.Context, roomID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	stamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := s.redis.Set(ctx, hostAbsentKey(roomID), stamp, ttl).Err(); err != nil {
		return fmt.Errorf("mark host absent: %w", err)
	}
	return nil
}

// HostAbsent reports whether the marker is present.
func (s *Store) HostAbsent(ctx context.Context, roomID string) (bool, error) {
	n, err := s.redis.Exists(ctx, hostAbsentKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("check host absent: %w", err)
	}
	return n > 0, nil
}

// ClearHostAbsent removes the marker and reports whether this call deleted it. Clearing a missing
// marker is not an error.
func (s *Store) ClearHostAbsent(ctx context.Context, roomID string) (bool, error) {
	n, err := s.redis.Del(ctx, hostAbsentKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("clear host absent: %w", err)
	}
	return n > 0, nil
}

// SaveMeta records room creation details.
func (s *Store) SaveMeta(ctx context.Context, meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := s.redis.Set(ctx, metaKey(meta.RoomID), data, s.opts.RoomTTL).Err(); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

// GetMeta returns room creation details, or nil when the room was never created over HTTP.
func (s *Store) GetMeta(ctx context.Context, roomID string) (*Meta, error) {
	data, err := s.redis.Get(ctx, metaKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &meta, nil
}

// Cleanup removes live room keys after a session ends. The session document stays, with the
// ended TTL, so reconnects are told the session is over.
func (s *Store) Cleanup(ctx context.Context, roomID string, questionCount int) error {
	keys := []string{playersKey(roomID), hostAbsentKey(roomID), metaKey(roomID)}
	for i := 0; i < questionCount; i++ {
		keys = append(keys, answersKey(roomID, i))
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.Expire(ctx, sessionKey(roomID), s.opts.EndedTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cleanup room: %w", err)
	}
	return nil
}
