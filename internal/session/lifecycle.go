package session

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
	httperrors "github.com/gokatarajesh/quiz-rooms/pkg/http/errors"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

const (
	msgRoomCodeNotFound = "Room code not found or expired"
	msgQuizNotCreated   = "Quiz not found or not created yet"
	msgQuizEnded        = "Quiz already ended"
	msgHostLeft         = "Host disconnected, the room has been closed"
	defaultPlayerName   = "Player"
)

// ConnectRequest is what a client supplies when opening a socket.
type ConnectRequest struct {
	RoomCode string
	Name     string
	PlayerID string
}

// resolveRoom maps a room code, or a raw room id, to the room id.
func (s *Service) resolveRoom(ctx context.Context, value string) (roomID, code string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", errs.Validation("roomCode is required")
	}
	if !roomcode.IsCode(value) {
		return value, "", nil
	}

	code = roomcode.Normalize(value)
	roomID, err = s.codes.Resolve(ctx, code)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return "", code, errs.NotFound(msgRoomCodeNotFound)
		}
		return "", code, err
	}
	return roomID, code, nil
}

// Connect admits conn into a room, answers it with a state_sync and announces players to the room.
// Any error is terminal for the connection.
func (s *Service) Connect(ctx context.Context, conn *ws.Connection, req ConnectRequest) (*Peer, error) {
	roomID, code, err := s.resolveRoom(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, roomID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if session == nil && conn.Role() == ws.RolePlayer {
		return nil, errs.NotFound(msgQuizNotCreated)
	}
	if session != nil && session.Phase == room.PhaseEnded {
		return nil, errs.Rejected(msgQuizEnded)
	}

	if code == "" {
		code = s.roomCodeFor(ctx, roomID, session)
	}
	peer := &Peer{RoomID: roomID, RoomCode: code, Conn: conn}
	logger := s.roomLogger(roomID)

	if conn.Role() == ws.RolePlayer {
		playerID, name, err := s.resolvePlayer(ctx, roomID, req)
		if err != nil {
			return nil, errs.Internal(err)
		}
		if err := s.store.AddPlayer(ctx, roomID, playerID, name); err != nil {
			return nil, errs.Internal(err)
		}
		conn.SetPlayer(playerID, name)
	} else if err := s.presence.Cancel(ctx, roomID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear host presence marker")
	}

	snapshot, err := s.stateSync(ctx, roomID, code, session, peer.PlayerID())
	if err != nil {
		return nil, errs.Internal(err)
	}

	s.hub.Register(roomID, conn)
	s.send(peer, snapshot)

	if conn.Role() == ws.RolePlayer {
		s.hub.Broadcast(roomID, PlayerJoined{PlayerID: peer.PlayerID(), PlayerName: peer.Name(), RoomCode: code}, conn)
	}

	logger.Info().
		Str("role", string(conn.Role())).
		Str("player_id", peer.PlayerID()).
		Str("conn_id", conn.ID()).
		Msg("connected")
	return peer, nil
}

// resolvePlayer finds the player by id, then by display name, else mints a new id.
func (s *Service) resolvePlayer(ctx context.Context, roomID string, req ConnectRequest) (string, string, error) {
	name := strings.TrimSpace(req.Name)

	if req.PlayerID != "" {
		stored, ok, err := s.store.PlayerName(ctx, roomID, req.PlayerID)
		if err != nil {
			return "", "", err
		}
		if ok {
			return req.PlayerID, stored, nil
		}
	}

	if name != "" {
		id, ok, err := s.store.FindPlayerByName(ctx, roomID, name)
		if err != nil {
			return "", "", err
		}
		if ok {
			return id, name, nil
		}
	}

	if name == "" {
		name = defaultPlayerName
	}
	return uuid.NewString(), name, nil
}

func (s *Service) roomCodeFor(ctx context.Context, roomID string, session *room.Session) string {
	if session != nil && session.RoomCode != "" {
		return session.RoomCode
	}
	meta, err := s.store.GetMeta(ctx, roomID)
	if err != nil || meta == nil {
		return ""
	}
	return meta.RoomCode
}

// Disconnect removes the peer from the hub. A departing player is announced; a host leaving the
// lobby arms the presence watcher.
func (s *Service) Disconnect(ctx context.Context, peer *Peer) {
	if !s.hub.Unregister(peer.RoomID, peer.Conn) {
		return
	}
	logger := s.roomLogger(peer.RoomID)

	if peer.Role() == ws.RolePlayer {
		// A reconnected player keeps their newer socket; only the last one leaving is announced.
		if id := peer.PlayerID(); id != "" && !s.hub.HasPlayer(peer.RoomID, id) {
			s.hub.Broadcast(peer.RoomID, PlayerLeft{PlayerID: id, PlayerName: peer.Name()}, nil)
		}
		logger.Info().Str("player_id", peer.PlayerID()).Msg("player disconnected")
		return
	}

	if s.hub.HasHost(peer.RoomID) {
		return
	}
	session, err := s.store.GetSession(ctx, peer.RoomID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load session after host disconnect")
		return
	}
	if session != nil && session.Phase != room.PhaseLobby {
		return
	}
	if err := s.presence.Arm(ctx, peer.RoomID); err != nil {
		logger.Error().Err(err).Msg("failed to arm host presence watcher")
	}
}

// cancelRoom closes a lobby whose host never came back.
func (s *Service) cancelRoom(_ context.Context, roomID string) {
	s.hub.Broadcast(roomID, ConnectionClosed{Message: msgHostLeft}, nil)
	for _, conn := range s.hub.Connections(roomID) {
		s.hub.Unregister(roomID, conn)
	}
	s.roomLogger(roomID).Info().Msg("room closed after host absence")
}

// Dispatch decodes and handles one inbound frame. Failures are answered with an error frame.
func (s *Service) Dispatch(ctx context.Context, peer *Peer, data []byte) {
	msg, err := Decode(data)
	if err == nil && msg.Role() != peer.Role() {
		err = errs.Rejected("%s is not allowed for role %s", msg.Type(), peer.Role())
	}
	if err == nil {
		err = s.handle(ctx, peer, msg)
	}
	if err != nil {
		s.replyError(peer, err)
	}
}

func (s *Service) handle(ctx context.Context, peer *Peer, msg Inbound) error {
	switch m := msg.(type) {
	case CreateSession:
		return s.CreateSession(ctx, peer, m)
	case StartQuestion:
		return s.StartQuestion(ctx, peer, m)
	case NextQuestion:
		return s.NextQuestion(ctx, peer, m)
	case RevealAnswer:
		return s.RevealAnswer(ctx, peer, m)
	case EndSession:
		return s.EndSession(ctx, peer)
	case PlayerJoin:
		return s.JoinPlayer(ctx, peer, m)
	case PlayerAnswer:
		return s.SubmitAnswer(ctx, peer, m)
	default:
		return errs.Validation("Unknown event type: %s", msg.Type())
	}
}

func (s *Service) replyError(peer *Peer, err error) {
	e := errs.Convert(err)
	code := httperrors.CodeFor(e.Code)
	frameErrorsTotal.WithLabelValues(code).Inc()

	message := e.Message
	if e.Code == errs.CodeInternal {
		s.roomLogger(peer.RoomID).Error().Err(err).Str("conn_id", peer.Conn.ID()).Msg("frame handling failed")
		message = "Internal error"
	}
	s.send(peer, ErrorEvent{Message: message, Code: code})
}
