package roomcode

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
)

func makeAllocator(t *testing.T, codes ...string) (*Allocator, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := NewAllocator(client, zerolog.Nop())
	if len(codes) > 0 {
		i := 0
		a.generate = func(int) string {
			code := codes[i%len(codes)]
			i++
			return code
		}
	}
	return a, mr
}

func TestGenerate(t *testing.T) {
	for _, n := range []int{5, 6} {
		code := Generate(n)
		assert.Len(t, code, n)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected glyph %q", r)
		}
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "0")
	}
}

func TestAllocator_AllocateAndResolve(t *testing.T) {
	a, mr := makeAllocator(t)
	ctx := context.Background()

	got, err := a.Allocate(ctx, "room-1", 5, time.Hour)
	require.NoError(t, err)
	assert.Len(t, got.Code, 5)
	assert.Equal(t, "room-1", got.RoomID)

	roomID, err := a.Resolve(ctx, strings.ToLower(got.Code))
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	assert.Equal(t, time.Hour, mr.TTL(codeKey(got.Code)))
	assert.Equal(t, time.Hour, mr.TTL(roomKey("room-1")))
}

func TestAllocator_Allocate(t *testing.T) {
	type (
		inputs struct {
			codes  []string
			taken  []string
			length int
			roomID string
		}

		outputs struct {
			alloc Allocation
			err   error
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should skip codes that are already taken": {
			arrange: func() inputs {
				return inputs{codes: []string{"AAAAA", "AAAAA", "BBBBB"}, taken: []string{"AAAAA"}, length: 5, roomID: "r1"}
			},
			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				assert.Equal(t, "BBBBB", out.alloc.Code)
			},
		},
		"should fail with exhausted after the attempt budget": {
			arrange: func() inputs {
				return inputs{codes: []string{"AAAAA"}, taken: []string{"AAAAA"}, length: 5, roomID: "r1"}
			},
			assert: func(t *testing.T, out outputs) {
				require.Error(t, out.err)
				assert.True(t, errs.HasCode(out.err, errs.CodeExhausted))
			},
		},
		"should reject lengths outside 5 to 6": {
			arrange: func() inputs {
				return inputs{length: 4, roomID: "r1"}
			},
			assert: func(t *testing.T, out outputs) {
				assert.True(t, errs.HasCode(out.err, errs.CodeValidation))
			},
		},
		"should reject an empty room id": {
			arrange: func() inputs {
				return inputs{length: 6}
			},
			assert: func(t *testing.T, out outputs) {
				assert.True(t, errs.HasCode(out.err, errs.CodeValidation))
			},
		},
		"should default to six characters": {
			arrange: func() inputs {
				return inputs{roomID: "r1"}
			},
			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				assert.Len(t, out.alloc.Code, DefaultLength)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			a, mr := makeAllocator(t, in.codes...)
			for _, code := range in.taken {
				require.NoError(t, mr.Set(codeKey(code), "someone-else"))
			}

			alloc, err := a.Allocate(context.Background(), in.roomID, in.length, 0)
			tt.assert(t, outputs{alloc: alloc, err: err})
		})
	}
}

func TestAllocator_ReallocateReleasesPreviousCode(t *testing.T) {
	a, _ := makeAllocator(t, "AAAAA", "BBBBB")
	ctx := context.Background()

	first, err := a.Allocate(ctx, "room-1", 5, time.Hour)
	require.NoError(t, err)
	second, err := a.Allocate(ctx, "room-1", 5, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, second.Code)

	_, err = a.Resolve(ctx, first.Code)
	assert.True(t, errs.HasCode(err, errs.CodeNotFound))

	roomID, err := a.Resolve(ctx, second.Code)
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)
}

func TestAllocator_RevokeIsIdempotent(t *testing.T) {
	a, mr := makeAllocator(t)
	ctx := context.Background()

	alloc, err := a.Allocate(ctx, "room-1", 6, time.Hour)
	require.NoError(t, err)

	deleted, err := a.Revoke(ctx, alloc.Code)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(codeKey(alloc.Code)))
	assert.False(t, mr.Exists(roomKey("room-1")))

	deleted, err = a.Revoke(ctx, alloc.Code)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = a.Resolve(ctx, alloc.Code)
	assert.True(t, errs.HasCode(err, errs.CodeNotFound))
}

func TestAllocator_ExpiredCodeIsGone(t *testing.T) {
	a, mr := makeAllocator(t)
	ctx := context.Background()

	alloc, err := a.Allocate(ctx, "room-1", 6, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = a.Resolve(ctx, alloc.Code)
	assert.True(t, errs.HasCode(err, errs.CodeNotFound))

	deleted, err := a.Revoke(ctx, alloc.Code)
	require.NoError(t, err)
	assert.False(t, deleted)
}
