package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRoomCacheTTL = 6 * time.Hour

// RoomCache keeps the full quiz a room was created for, keyed by room code, so the host's
// create_session does not need another trip to Postgres.
type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomCache(client *redis.Client, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = DefaultRoomCacheTTL
	}
	return &RoomCache{client: client, ttl: ttl}
}

func roomQuizKey(roomCode string) string {
	return fmt.Sprintf("quiz:room:%s:quiz", roomCode)
}

// Get returns the cached quiz, or nil on a miss.
func (c *RoomCache) Get(ctx context.Context, roomCode string) (*Quiz, error) {
	data, err := c.client.Get(ctx, roomQuizKey(roomCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var q Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *RoomCache) Set(ctx context.Context, roomCode string, q Quiz) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roomQuizKey(roomCode), data, c.ttl).Err()
}

func (c *RoomCache) Delete(ctx context.Context, roomCode string) error {
	return c.client.Del(ctx, roomQuizKey(roomCode)).Err()
}
