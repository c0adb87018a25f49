package session

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
	httperrors "github.com/gokatarajesh/quiz-rooms/pkg/http/errors"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

// Handler serves the live protocol on /ws.
type Handler struct {
	service  *Service
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(service *Service, upgrader *websocket.Upgrader, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "session_ws").Logger(),
	}
}

// HandleWebSocket upgrades the request and runs the connection until the peer leaves.
// Query: role=host|player, roomCode, name, playerId.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var role ws.Role
	switch q.Get("role") {
	case "", string(ws.RolePlayer):
		role = ws.RolePlayer
	case string(ws.RoleHost):
		role = ws.RoleHost
	default:
		httperrors.RespondValidationError(w, "role must be host or player", "role")
		return
	}
	if q.Get("roomCode") == "" {
		httperrors.RespondValidationError(w, "roomCode is required", "roomCode")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, role, h.logger)
	go wsConn.WritePump()

	ctx := logging.IntoContext(context.Background(), h.logger.With().Str("conn_id", wsConn.ID()).Logger())
	peer, err := h.service.Connect(ctx, wsConn, ConnectRequest{
		RoomCode: q.Get("roomCode"),
		Name:     q.Get("name"),
		PlayerID: q.Get("playerId"),
	})
	if err != nil {
		h.reject(wsConn, err)
		// Drain until the write pump closes the socket.
		wsConn.ReadPump(func([]byte) {})
		return
	}

	wsConn.ReadPump(func(data []byte) {
		h.service.Dispatch(ctx, peer, data)
	})
	h.service.Disconnect(ctx, peer)
}

// reject sends the terminal error frame and closes the connection.
func (h *Handler) reject(conn *ws.Connection, err error) {
	e := errs.Convert(err)
	code := httperrors.CodeFor(e.Code)
	message := e.Message

	switch {
	case e.Code == errs.CodeNotFound && e.Message == msgRoomCodeNotFound:
		code = httperrors.ErrCodeRoomNotFound
	case e.Code == errs.CodeNotFound:
		code = httperrors.ErrCodeSessionNotFound
	case e.Code == errs.CodeRejected:
		code = httperrors.ErrCodeSessionEnded
	case e.Code == errs.CodeInternal:
		h.logger.Error().Err(err).Str("conn_id", conn.ID()).Msg("connect failed")
		message = "Internal error"
	}

	frameErrorsTotal.WithLabelValues(code).Inc()
	if sendErr := conn.Send(ErrorEvent{Message: message, Code: code}); sendErr != nil {
		h.logger.Warn().Err(sendErr).Str("conn_id", conn.ID()).Msg("failed to send connect error")
	}
	conn.Close()
}
