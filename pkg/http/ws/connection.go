package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// Role of the peer on the other end of a connection.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Socket is the subset of *websocket.Conn the pumps need.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Socket = (*websocket.Conn)(nil)

// Connection represents a WebSocket connection with a send queue.
type Connection struct {
	id     string
	role   Role
	conn   Socket
	sendCh chan []byte
	logger zerolog.Logger

	mu       sync.Mutex
	closed   bool
	playerID string
	name     string
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn Socket, role Role, logger zerolog.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:     id,
		role:   role,
		conn:   conn,
		sendCh: make(chan []byte, sendQueueSize),
		logger: logger.With().Str("conn_id", id).Str("role", string(role)).Logger(),
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Role() Role { return c.role }

// SetPlayer binds the player identity resolved at connect or on a legacy join.
func (c *Connection) SetPlayer(playerID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.name = name
}

// Player returns the bound player identity, empty for hosts.
func (c *Connection) Player() (playerID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.name
}

// Send encodes and queues an event.
func (c *Connection) Send(e Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	return c.SendFrame(frame)
}

// SendFrame queues an already encoded frame. It never blocks.
func (c *Connection) SendFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops accepting messages. Frames already queued are flushed by WritePump,
// which then closes the socket.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WritePump sends queued frames and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// ReadPump receives frames and calls the handler until the peer goes away.
func (c *Connection) ReadPump(handler func(data []byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		handler(data)
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
