package roomcode

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
)

// startServer serves an Allocator over an in-memory listener and returns a connected client.
func startServer(t *testing.T, alloc *Allocator) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(logging.GRPCServerInterceptor(zerolog.Nop()))
	Register(srv, NewService(alloc, zerolog.Nop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn, zerolog.Nop(), ClientOptions{})
}

func TestService_RoundTrip(t *testing.T) {
	alloc, _ := makeAllocator(t)
	client := startServer(t, alloc)
	ctx := context.Background()

	before := time.Now()
	got, err := client.Generate(ctx, "room-1", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, got.Code, 5)
	assert.WithinDuration(t, before.Add(10*time.Minute), got.ExpiresAt, 5*time.Second)

	roomID, err := client.Resolve(ctx, got.Code)
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	deleted, err := client.Revoke(ctx, got.Code)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = client.Revoke(ctx, got.Code)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = client.Resolve(ctx, got.Code)
	assert.True(t, errs.HasCode(err, errs.CodeNotFound))
}

func TestService_ErrorCodes(t *testing.T) {
	alloc, mr := makeAllocator(t, "AAAAA")
	require.NoError(t, mr.Set(codeKey("AAAAA"), "other"))
	client := startServer(t, alloc)
	ctx := context.Background()

	_, err := client.Generate(ctx, "room-1", 5, time.Minute)
	assert.True(t, errs.HasCode(err, errs.CodeExhausted))

	_, err = client.Generate(ctx, "room-1", 9, time.Minute)
	assert.True(t, errs.HasCode(err, errs.CodeValidation))

	// Exhaustion is the caller's cue to retry, the client must not paper over it.
	_, err = client.Allocate(ctx, "room-1", 5, time.Minute)
	assert.True(t, errs.HasCode(err, errs.CodeExhausted))
}

func TestService_StatusOnTheWire(t *testing.T) {
	alloc, _ := makeAllocator(t)
	srv := NewService(alloc, zerolog.Nop())

	_, err := srv.GenerateRoomCode(context.Background(), &GenerateRoomCodeRequest{RoomID: "r", CodeLength: 2})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err := srv.ResolveRoomCode(context.Background(), &ResolveRoomCodeRequest{RoomCode: "NOPE1"})
	require.NoError(t, err)
	assert.False(t, resp.Found)
}

type unreachableConn struct{}

func (unreachableConn) Invoke(context.Context, string, any, any, ...grpc.CallOption) error {
	return status.Error(codes.Unavailable, "connection refused")
}

func (unreachableConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Error(codes.Unavailable, "connection refused")
}

func TestClient_FallbackOnlyForCreation(t *testing.T) {
	local, _ := makeAllocator(t)
	client := NewClient(unreachableConn{}, zerolog.Nop(), ClientOptions{Fallback: local})
	ctx := context.Background()

	got, err := client.Allocate(ctx, "room-1", 5, time.Minute)
	require.NoError(t, err)
	assert.Len(t, got.Code, 5)

	roomID, err := local.Resolve(ctx, got.Code)
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	_, err = client.Resolve(ctx, got.Code)
	assert.True(t, errs.HasCode(err, errs.CodeUnavailable))

	_, err = client.Revoke(ctx, got.Code)
	assert.True(t, errs.HasCode(err, errs.CodeUnavailable))
}

func TestClient_FallbackWithoutReserver(t *testing.T) {
	client := NewClient(unreachableConn{}, zerolog.Nop(), ClientOptions{})

	// A code nobody stored could never be resolved and could collide with a live room.
	_, err := client.Allocate(context.Background(), "room-1", 0, 0)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeUnavailable))
}
