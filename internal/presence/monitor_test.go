package presence

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

const grace = 40 * time.Millisecond

type harness struct {
	monitor *Monitor
	store   *room.Store
	mr      *miniredis.Miniredis
	fired   atomic.Int32
}

func makeMonitor(t *testing.T, phase room.Phase) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{store: room.NewStore(client, zerolog.Nop(), room.StoreOptions{}), mr: mr}
	require.NoError(t, h.store.SaveSession(context.Background(), "room-1", &room.Session{
		SessionID:     "s-1",
		Phase:         phase,
		QuestionIndex: -1,
	}))

	h.monitor = NewMonitor(h.store, grace, func(context.Context, string) { h.fired.Add(1) }, zerolog.Nop())
	t.Cleanup(h.monitor.Close)
	return h
}

func (h *harness) markerPresent() bool {
	return h.mr.Exists("session:room-1:host_absent")
}

func TestMonitor_FiresOnceWhenHostDoesNotReturn(t *testing.T) {
	h := makeMonitor(t, room.PhaseLobby)

	require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))
	assert.True(t, h.markerPresent())
	assert.Equal(t, grace+markerSlack, h.mr.TTL("session:room-1:host_absent"))
	assert.True(t, h.monitor.Armed("room-1"))

	assert.Eventually(t, func() bool { return h.fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !h.markerPresent() }, time.Second, 5*time.Millisecond)

	time.Sleep(3 * grace)
	assert.Equal(t, int32(1), h.fired.Load())
	assert.False(t, h.monitor.Armed("room-1"))
}

func TestMonitor_CancelBeforeDeadline(t *testing.T) {
	h := makeMonitor(t, room.PhaseLobby)

	require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))
	require.NoError(t, h.monitor.Cancel(context.Background(), "room-1"))

	assert.False(t, h.markerPresent())
	assert.False(t, h.monitor.Armed("room-1"))

	time.Sleep(3 * grace)
	assert.Equal(t, int32(0), h.fired.Load())
}

func TestMonitor_SkipsWhenRoomProgressed(t *testing.T) {
	tests := map[string]struct {
		arrange func(t *testing.T, h *harness)
	}{
		"phase left the lobby": {
			arrange: func(t *testing.T, h *harness) {
				require.NoError(t, h.store.SaveSession(context.Background(), "room-1", &room.Session{
					SessionID:     "s-1",
					Phase:         room.PhaseQuestionActive,
					QuestionIndex: 0,
					StartedAt:     time.Now().UnixMilli(),
					DurationMs:    10_000,
					Questions:     []room.Question{{ID: "q", Text: "?", Answers: []string{"a"}, CorrectAnswer: 0}},
				}))
			},
		},
		"marker cleared by another path": {
			arrange: func(t *testing.T, h *harness) {
				_, err := h.store.ClearHostAbsent(context.Background(), "room-1")
				require.NoError(t, err)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := makeMonitor(t, room.PhaseLobby)
			require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))
			tt.arrange(t, h)

			assert.Eventually(t, func() bool { return !h.monitor.Armed("room-1") }, time.Second, 5*time.Millisecond)
			time.Sleep(grace)
			assert.Equal(t, int32(0), h.fired.Load())
			assert.False(t, h.markerPresent())
		})
	}
}

// returningStore clears the marker the moment the watcher reads the session, the way a host
// reconnecting right at the deadline would.
type returningStore struct {
	*room.Store
}

func (s returningStore) GetSession(ctx context.Context, roomID string) (*room.Session, error) {
	if _, err := s.Store.ClearHostAbsent(ctx, roomID); err != nil {
		return nil, err
	}
	return s.Store.GetSession(ctx, roomID)
}

func TestMonitor_HostReturnsAtDeadline(t *testing.T) {
	h := makeMonitor(t, room.PhaseLobby)
	monitor := NewMonitor(returningStore{h.store}, grace, func(context.Context, string) { h.fired.Add(1) }, zerolog.Nop())
	t.Cleanup(monitor.Close)

	require.NoError(t, monitor.Arm(context.Background(), "room-1"))
	assert.Eventually(t, func() bool { return !monitor.Armed("room-1") }, time.Second, 5*time.Millisecond)

	time.Sleep(grace)
	assert.Equal(t, int32(0), h.fired.Load())
	assert.False(t, h.markerPresent())
}

func TestMonitor_RearmReplacesWatcher(t *testing.T) {
	h := makeMonitor(t, room.PhaseLobby)

	require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))
	require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))

	assert.Eventually(t, func() bool { return h.fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * grace)
	assert.Equal(t, int32(1), h.fired.Load())
}

func TestMonitor_CloseStopsWatchers(t *testing.T) {
	h := makeMonitor(t, room.PhaseLobby)

	require.NoError(t, h.monitor.Arm(context.Background(), "room-1"))
	h.monitor.Close()

	time.Sleep(3 * grace)
	assert.Equal(t, int32(0), h.fired.Load())
}
