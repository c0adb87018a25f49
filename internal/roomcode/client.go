package roomcode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
)

// LocalReserver reserves a code without the remote service. Used only for new rooms.
type LocalReserver interface {
	Allocate(ctx context.Context, roomID string, length int, ttl time.Duration) (Allocation, error)
}

// Client talks to the room code service.
type Client struct {
	conn     grpc.ClientConnInterface
	closer   func() error
	fallback LocalReserver
	timeout  time.Duration
	logger   zerolog.Logger
}

type ClientOptions struct {
	// Timeout bounds each RPC. Zero means 3s.
	Timeout time.Duration
	// Fallback reserves codes when the service cannot be reached. Without one, Allocate fails while
	// the service is down.
	Fallback LocalReserver
}

// Dial connects lazily to addr; the first RPC establishes the connection.
func Dial(addr string, logger zerolog.Logger, opts ClientOptions) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
		logging.GRPCClientInterceptor(logger.With().Str("component", "roomcode_client").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial room code service: %w", err)
	}
	c := NewClient(conn, logger, opts)
	c.closer = conn.Close
	return c, nil
}

// NewClient wraps an existing connection. The connection must use the json content-subtype.
func NewClient(conn grpc.ClientConnInterface, logger zerolog.Logger, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	return &Client{
		conn:     conn,
		fallback: opts.Fallback,
		timeout:  opts.Timeout,
		logger:   logger.With().Str("component", "roomcode_client").Logger(),
	}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return errs.FromStatus(err)
	}
	return nil
}

// Generate asks the service for a new code.
func (c *Client) Generate(ctx context.Context, roomID string, length int, ttl time.Duration) (Allocation, error) {
	var out GenerateRoomCodeResponse
	err := c.invoke(ctx, methodGenerate, &GenerateRoomCodeRequest{
		RoomID:     roomID,
		CodeLength: int32(length),
		TTLSeconds: int64(ttl / time.Second),
	}, &out)
	if err != nil {
		return Allocation{}, err
	}

	a := Allocation{Code: out.RoomCode, RoomID: roomID}
	if out.ExpiresAt != nil {
		a.ExpiresAt = out.ExpiresAt.AsTime()
	}
	return a, nil
}

// Allocate is Generate with a local reservation when the service is unavailable.
// Exhausted and invalid requests are returned to the caller unchanged.
func (c *Client) Allocate(ctx context.Context, roomID string, length int, ttl time.Duration) (Allocation, error) {
	a, err := c.Generate(ctx, roomID, length, ttl)
	if err == nil || !errs.HasCode(err, errs.CodeUnavailable) {
		return a, err
	}

	if c.fallback == nil {
		return Allocation{}, err
	}

	fallbacksTotal.Inc()
	c.logger.Warn().Err(err).Str("room_id", roomID).Msg("room code service unavailable, reserving code locally")
	return c.fallback.Allocate(ctx, roomID, length, ttl)
}

// Resolve maps a code to its room id. Transport failures are returned, never guessed around.
func (c *Client) Resolve(ctx context.Context, code string) (string, error) {
	var out ResolveRoomCodeResponse
	if err := c.invoke(ctx, methodResolve, &ResolveRoomCodeRequest{RoomCode: Normalize(code)}, &out); err != nil {
		return "", err
	}
	if !out.Found {
		return "", errs.NotFound("room code %s not found or expired", Normalize(code))
	}
	return out.RoomID, nil
}

// Revoke deletes a code. Deleting an already gone code returns false.
func (c *Client) Revoke(ctx context.Context, code string) (bool, error) {
	var out DeleteRoomCodeResponse
	if err := c.invoke(ctx, methodDelete, &DeleteRoomCodeRequest{RoomCode: Normalize(code)}, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}
