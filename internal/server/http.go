package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/config"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
	httperrors "github.com/gokatarajesh/quiz-rooms/pkg/http/errors"
)

// NewUpgrader accepts sockets from the configured origins. Requests without an Origin header
// (non-browser clients) are always accepted.
func NewUpgrader(cors config.CORS) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cors.AllowedOrigins, "*") || slices.Contains(cors.AllowedOrigins, origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Pinger checks one upstream dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes are the API handlers mounted by NewHTTPServer. Nil handlers are left unmounted.
type Routes struct {
	WebSocket       http.HandlerFunc
	CreateRoom      http.HandlerFunc
	RoomInfo        http.HandlerFunc
	RoomHistory     http.HandlerFunc
	ArchivedSession http.HandlerFunc
	Quizzes         http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics, ping) and the API routes.
func NewHTTPServer(addr string, logger zerolog.Logger, deps []Pinger, routes Routes) *http.Server {
	mux := http.NewServeMux()
	mountBase(mux, logger, deps)

	mount(mux, "/ws", routes.WebSocket)
	mount(mux, "/v1/sessions", routes.CreateRoom)
	mount(mux, "/v1/sessions/{code}/info", routes.RoomInfo)
	mount(mux, "/v1/sessions/{code}/history", routes.RoomHistory)
	mount(mux, "/v1/archive/{id}", routes.ArchivedSession)
	mount(mux, "/v1/quizzes", routes.Quizzes)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// NewMetricsServer serves only health and metrics; used by the room code process.
func NewMetricsServer(addr string, logger zerolog.Logger, deps []Pinger) *http.Server {
	mux := http.NewServeMux()
	mountBase(mux, logger, deps)
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

func mount(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if h != nil {
		mux.HandleFunc(pattern, h)
	}
}

func mountBase(mux *http.ServeMux, logger zerolog.Logger, deps []Pinger) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, deps); err != nil {
			reqLogger := logging.FromContext(ctx)
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})
}

func pingDependencies(ctx context.Context, deps []Pinger) error {
	for _, d := range deps {
		if err := d.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
