// Package presence watches for hosts that leave a room in the lobby and do not come back.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

const (
	DefaultGrace = 70 * time.Second
	// markerSlack keeps the marker alive past the watcher's deadline so the watcher can still claim it.
	markerSlack  = 5 * time.Second
	checkTimeout = 5 * time.Second
)

// Store is the slice of the room state store the monitor reads and writes.
type Store interface {
	GetSession(ctx context.Context, roomID string) (*room.Session, error)
	MarkHostAbsent(ctx context.Context, roomID string, ttl time.Duration) error
	ClearHostAbsent(ctx context.Context, roomID string) (bool, error)
}

// ExpireFunc cancels a room whose host did not return in time.
type ExpireFunc func(ctx context.Context, roomID string)

type watcher struct {
	cancel context.CancelFunc
}

// Monitor owns one cancellable watcher per room whose host is absent.
type Monitor struct {
	store    Store
	grace    time.Duration
	onExpire ExpireFunc
	logger   zerolog.Logger

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]*watcher
}

func NewMonitor(store Store, grace time.Duration, onExpire ExpireFunc, logger zerolog.Logger) *Monitor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Monitor{
		store:    store,
		grace:    grace,
		onExpire: onExpire,
		logger:   logger.With().Str("component", "host_presence").Logger(),
		ctx:      ctx,
		stop:     stop,
		active:   make(map[string]*watcher),
	}
}

// Arm sets the absence marker and schedules a watcher, replacing any previous one for the room.
func (m *Monitor) Arm(ctx context.Context, roomID string) error {
	if err := m.store.MarkHostAbsent(ctx, roomID, m.grace+markerSlack); err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(m.ctx)
	w := &watcher{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.active[roomID]; ok {
		prev.cancel()
	}
	m.active[roomID] = w
	m.wg.Add(1)
	m.mu.Unlock()

	armedTotal.Inc()
	m.logger.Info().Str("room_id", roomID).Dur("grace", m.grace).Msg("host absent, watcher armed")

	go m.watch(wctx, roomID, w)
	return nil
}

// Cancel stops the room's watcher and clears the marker. Cancelling an idle room only clears the marker.
func (m *Monitor) Cancel(ctx context.Context, roomID string) error {
	m.mu.Lock()
	w, ok := m.active[roomID]
	if ok {
		delete(m.active, roomID)
		w.cancel()
	}
	m.mu.Unlock()

	if ok {
		cancelledTotal.Inc()
		m.logger.Info().Str("room_id", roomID).Msg("host returned, watcher cancelled")
	}
	_, err := m.store.ClearHostAbsent(ctx, roomID)
	return err
}

// Armed reports whether a watcher is pending for the room.
func (m *Monitor) Armed(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[roomID]
	return ok
}

// Close cancels every pending watcher and waits for them to exit. Markers are left to expire.
func (m *Monitor) Close() {
	m.stop()
	m.wg.Wait()
}

func (m *Monitor) watch(ctx context.Context, roomID string, w *watcher) {
	defer m.wg.Done()

	timer := time.NewTimer(m.grace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	m.mu.Lock()
	if m.active[roomID] != w {
		m.mu.Unlock()
		return
	}
	delete(m.active, roomID)
	m.mu.Unlock()

	m.fire(roomID)
}

// fire closes the room if the marker is still there and the room never left the lobby. Deleting
// the marker is the claim: a host who returns first clears it and the room is kept.
func (m *Monitor) fire(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	logger := m.logger.With().Str("room_id", roomID).Logger()

	session, loadErr := m.store.GetSession(ctx, roomID)
	if loadErr != nil {
		logger.Error().Err(loadErr).Msg("presence check failed to load session")
	}

	claimed, err := m.store.ClearHostAbsent(ctx, roomID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to claim presence marker")
		return
	}
	if !claimed {
		return
	}

	if loadErr == nil && (session == nil || session.Phase == room.PhaseLobby) {
		logger.Warn().Msg("host did not return, closing room")
		expiredTotal.Inc()
		m.onExpire(ctx, roomID)
	}
}
