package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/quiz"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
	"github.com/gokatarajesh/quiz-rooms/internal/session/scoring"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

const waitFor = time.Second

// quizTable is an in-memory quiz.Store.
type quizTable map[string]*quiz.Quiz

func (t quizTable) GetQuiz(_ context.Context, id string) (*quiz.Quiz, error) {
	q, ok := t[id]
	if !ok {
		return nil, errs.NotFound("Quiz not found")
	}
	return q, nil
}

func (t quizTable) ListQuizzes(context.Context) ([]quiz.QuizSummary, error) {
	out := make([]quiz.QuizSummary, 0, len(t))
	for _, q := range t {
		out = append(out, quiz.QuizSummary{ID: q.ID, Title: q.Title})
	}
	return out, nil
}

// recordingArchive collects saved snapshots and fails while err is set.
type recordingArchive struct {
	mu    sync.Mutex
	saved []room.FinishedSessionSnapshot
	err   error
}

func (a *recordingArchive) SaveFinishedSession(_ context.Context, snap room.FinishedSessionSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, snap)
	return nil
}

func (a *recordingArchive) failWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *recordingArchive) snapshots() []room.FinishedSessionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]room.FinishedSessionSnapshot(nil), a.saved...)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	mr      *miniredis.Miniredis
	store   *room.Store
	hub     *ws.Hub
	codes   *roomcode.Allocator
	archive *recordingArchive
	clock   *clock
	svc     *Service
}

func sampleQuiz() *quiz.Quiz {
	return &quiz.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []room.Question{
			{ID: "q1", Text: "Capital of France?", Answers: []string{"Paris", "Rome", "Oslo"}, CorrectAnswer: 0, Position: 0},
			{ID: "q2", Text: "Capital of Norway?", Answers: []string{"Paris", "Rome", "Oslo"}, CorrectAnswer: 2, Position: 1},
		},
	}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	h := &harness{
		mr:      mr,
		store:   room.NewStore(client, logger, room.StoreOptions{}),
		hub:     ws.NewHub(logger),
		codes:   roomcode.NewAllocator(client, logger),
		archive: &recordingArchive{},
		clock:   &clock{now: time.UnixMilli(1_700_000_000_000)},
	}
	catalog := quiz.NewCatalog(quizTable{"quiz-1": sampleQuiz()}, quiz.NewRoomCache(client, 0), logger)
	if opts.Scoring.BaseScore == 0 {
		opts.Scoring = scoring.DefaultScoringConfig()
	}

	h.svc = NewService(h.store, h.hub, h.codes, catalog, h.archive, opts, logger)
	h.svc.now = h.clock.Now
	t.Cleanup(h.svc.Close)
	return h
}

// pipeSocket stands in for a websocket. Text frames written by the pump land on frames.
type pipeSocket struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newPipeSocket() *pipeSocket {
	return &pipeSocket{frames: make(chan []byte, 512), done: make(chan struct{})}
}

func (s *pipeSocket) ReadMessage() (int, []byte, error) {
	<-s.done
	return 0, nil, errors.New("closed")
}

func (s *pipeSocket) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		s.frames <- append([]byte(nil), data...)
	}
	return nil
}

func (s *pipeSocket) SetReadDeadline(time.Time) error           { return nil }
func (s *pipeSocket) SetWriteDeadline(time.Time) error          { return nil }
func (s *pipeSocket) SetReadLimit(int64)                        {}
func (s *pipeSocket) SetPongHandler(func(appData string) error) {}

func (s *pipeSocket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *pipeSocket) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// client is one fake peer with its write pump running.
type client struct {
	t    *testing.T
	sock *pipeSocket
	conn *ws.Connection
	peer *Peer
}

func newClient(t *testing.T, role ws.Role) *client {
	t.Helper()
	sock := newPipeSocket()
	conn := ws.NewConnection(sock, role, zerolog.Nop())
	go conn.WritePump()
	t.Cleanup(conn.Close)
	return &client{t: t, sock: sock, conn: conn}
}

// connect opens a peer through Service.Connect.
func (h *harness) connect(t *testing.T, role ws.Role, req ConnectRequest) (*client, error) {
	t.Helper()
	c := newClient(t, role)
	peer, err := h.svc.Connect(context.Background(), c.conn, req)
	c.peer = peer
	return c, err
}

func (h *harness) mustConnect(t *testing.T, role ws.Role, req ConnectRequest) *client {
	t.Helper()
	c, err := h.connect(t, role, req)
	require.NoError(t, err)
	c.expect("state_sync")
	return c
}

func (c *client) send(h *harness, frame string) {
	c.t.Helper()
	h.svc.Dispatch(context.Background(), c.peer, []byte(frame))
}

// expect skips frames until one of type typ arrives and returns its fields.
func (c *client) expect(typ string) map[string]any {
	c.t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case frame := <-c.sock.frames:
			var m map[string]any
			require.NoError(c.t, json.Unmarshal(frame, &m))
			if m["type"] == typ {
				return m
			}
		case <-deadline:
			c.t.Fatalf("no %s frame within %s", typ, waitFor)
			return nil
		}
	}
}

// expectInto decodes the next frame of type typ into out.
func (c *client) expectInto(typ string, out any) {
	c.t.Helper()
	m := c.expect(typ)
	data, err := json.Marshal(m)
	require.NoError(c.t, err)
	require.NoError(c.t, json.Unmarshal(data, out))
}

// quiet asserts no frame of type typ arrives for a short while.
func (c *client) quiet(typ string) {
	c.t.Helper()
	deadline := time.After(50 * time.Millisecond)
	for {
		select {
		case frame := <-c.sock.frames:
			var m map[string]any
			require.NoError(c.t, json.Unmarshal(frame, &m))
			if m["type"] == typ {
				c.t.Fatalf("unexpected %s frame: %s", typ, frame)
			}
		case <-deadline:
			return
		}
	}
}

// lobby creates a room for quiz-1, connects a host and creates the session.
func (h *harness) lobby(t *testing.T) (*CreatedRoom, *client) {
	t.Helper()
	created, err := h.svc.CreateRoom(context.Background(), "quiz-1")
	require.NoError(t, err)

	host := h.mustConnect(t, ws.RoleHost, ConnectRequest{RoomCode: created.RoomCode})
	host.send(h, `{"type":"host:create_session"}`)
	host.expect("state_sync")
	return created, host
}

func (h *harness) session(t *testing.T, roomID string) *room.Session {
	t.Helper()
	s, err := h.store.GetSession(context.Background(), roomID)
	require.NoError(t, err)
	return s
}
