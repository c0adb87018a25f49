package session

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	httperrors "github.com/gokatarajesh/quiz-rooms/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for rooms, archives and the quiz catalog.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

// CreateRoomRequest is the body of POST /v1/sessions.
type CreateRoomRequest struct {
	QuizID string `json:"quizId"`
}

// CreateRoom handles POST /v1/sessions
func (h *HTTPHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	req.QuizID = strings.TrimSpace(req.QuizID)
	if req.QuizID == "" {
		httperrors.RespondValidationError(w, "quizId is required", "quizId")
		return
	}

	created, err := h.service.CreateRoom(r.Context(), req.QuizID)
	if err != nil {
		h.fail(w, err, "failed to create room")
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, created)
}

// RoomInfo handles GET /v1/sessions/{code}/info
func (h *HTTPHandlers) RoomInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	info, err := h.service.RoomInfo(r.Context(), r.PathValue("code"))
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, msgSessionNotFound)
			return
		}
		h.fail(w, err, "failed to load room info")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, info)
}

// RoomHistory handles GET /v1/sessions/{code}/history
func (h *HTTPHandlers) RoomHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	sessions, err := h.service.RoomHistory(r.Context(), r.PathValue("code"))
	if err != nil {
		h.fail(w, err, "failed to load room history")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{
		"roomCode": strings.ToUpper(r.PathValue("code")),
		"sessions": sessions,
	})
}

// ArchivedSession handles GET /v1/archive/{id}
func (h *HTTPHandlers) ArchivedSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	snap, err := h.service.ArchivedSession(r.Context(), r.PathValue("id"))
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, msgSessionNotFound)
			return
		}
		h.fail(w, err, "failed to load archived session")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, snap)
}

// Quizzes handles GET /v1/quizzes
func (h *HTTPHandlers) Quizzes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	quizzes, err := h.service.Quizzes(r.Context())
	if err != nil {
		h.fail(w, err, "failed to list quizzes")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

func (h *HTTPHandlers) fail(w http.ResponseWriter, err error, msg string) {
	if code := errs.Convert(err).Code; code == errs.CodeInternal || code == errs.CodeUnavailable {
		h.logger.Error().Err(err).Msg(msg)
	}
	httperrors.RespondFrom(w, err)
}
