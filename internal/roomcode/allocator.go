package roomcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
)

const (
	DefaultTTL  = 6 * time.Hour
	maxAttempts = 10
)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Allocation is a freshly reserved code.
type Allocation struct {
	Code      string
	RoomID    string
	ExpiresAt time.Time
}

// Allocator maps short codes to room ids in Redis. Both directions share one TTL.
type Allocator struct {
	redis    *redis.Client
	logger   zerolog.Logger
	generate func(length int) string
	now      func() time.Time
}

// NewAllocator creates an allocator backed by Redis.
func NewAllocator(redis *redis.Client, logger zerolog.Logger) *Allocator {
	return &Allocator{
		redis:    redis,
		logger:   logger.With().Str("component", "roomcode_allocator").Logger(),
		generate: Generate,
		now:      time.Now,
	}
}

func codeKey(code string) string {
	return fmt.Sprintf("roomcode:code:%s", code)
}

func roomKey(roomID string) string {
	return fmt.Sprintf("roomcode:room:%s", roomID)
}

// Allocate reserves an unused code for roomID. A zero length or ttl selects the defaults.
func (a *Allocator) Allocate(ctx context.Context, roomID string, length int, ttl time.Duration) (Allocation, error) {
	if roomID == "" {
		return Allocation{}, errs.Validation("room id is required")
	}
	if length == 0 {
		length = DefaultLength
	}
	if !ValidLength(length) {
		return Allocation{}, errs.Validation("code length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code := a.generate(length)

		reserved, err := a.redis.SetNX(ctx, codeKey(code), roomID, ttl).Result()
		if err != nil {
			return Allocation{}, fmt.Errorf("reserve code: %w", err)
		}
		if !reserved {
			collisionsTotal.Inc()
			a.logger.Debug().Str("room_code", code).Int("attempt", attempt).Msg("room code collision")
			continue
		}

		prev, err := a.redis.SetArgs(ctx, roomKey(roomID), code, redis.SetArgs{TTL: ttl, Get: true}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			_ = a.redis.Del(ctx, codeKey(code)).Err()
			return Allocation{}, fmt.Errorf("store reverse mapping: %w", err)
		}
		if prev != "" && prev != code {
			if err := releaseScript.Run(ctx, a.redis, []string{codeKey(prev)}, roomID).Err(); err != nil {
				a.logger.Warn().Err(err).Str("room_code", prev).Msg("failed to release previous room code")
			}
		}

		allocationsTotal.WithLabelValues("ok").Inc()
		a.logger.Info().
			Str("room_code", code).
			Str("room_id", roomID).
			Int("attempt", attempt).
			Dur("ttl", ttl).
			Msg("room code allocated")

		return Allocation{Code: code, RoomID: roomID, ExpiresAt: a.now().Add(ttl)}, nil
	}

	allocationsTotal.WithLabelValues("exhausted").Inc()
	return Allocation{}, errs.Exhausted("no free %d-character code after %d attempts, retry with a longer code", length, maxAttempts)
}

// Resolve returns the room id a code points at.
func (a *Allocator) Resolve(ctx context.Context, code string) (string, error) {
	code = Normalize(code)
	if code == "" {
		return "", errs.Validation("room code is required")
	}

	roomID, err := a.redis.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.NotFound("room code %s not found or expired", code)
	}
	if err != nil {
		return "", fmt.Errorf("resolve code: %w", err)
	}
	return roomID, nil
}

// Revoke deletes both mappings. Revoking an unknown or expired code reports false without error.
func (a *Allocator) Revoke(ctx context.Context, code string) (bool, error) {
	code = Normalize(code)
	if code == "" {
		return false, errs.Validation("room code is required")
	}

	roomID, err := a.redis.GetDel(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revoke code: %w", err)
	}

	if err := releaseScript.Run(ctx, a.redis, []string{roomKey(roomID)}, code).Err(); err != nil {
		return true, fmt.Errorf("release reverse mapping: %w", err)
	}

	a.logger.Info().Str("room_code", code).Str("room_id", roomID).Msg("room code revoked")
	return true, nil
}
