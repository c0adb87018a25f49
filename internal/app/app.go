package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/config"
	"github.com/gokatarajesh/quiz-rooms/internal/db/repository"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
	"github.com/gokatarajesh/quiz-rooms/internal/quiz"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
	"github.com/gokatarajesh/quiz-rooms/internal/server"
	"github.com/gokatarajesh/quiz-rooms/internal/session"
	"github.com/gokatarajesh/quiz-rooms/internal/session/scoring"
	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, room code client, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	codes   *roomcode.Client
	session *session.Service
	http    *http.Server

	archiveWorker *session.ArchiveWorker
	bgCancels     []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the room code client and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	quizRepo := repository.NewQuizRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	// Codes reserved locally while the room code service is down live in the same Redis.
	localCodes := roomcode.NewAllocator(redisClient, logger)
	codes, err := roomcode.Dial(cfg.GRPC.RoomCodeAddr, logger, roomcode.ClientOptions{
		Timeout:  cfg.GRPC.CallTimeout,
		Fallback: localCodes,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	store := room.NewStore(redisClient, logger, room.StoreOptions{
		RoomTTL:  cfg.Session.RoomTTL,
		EndedTTL: cfg.Session.EndedTTL,
	})
	catalog := quiz.NewCatalog(quizRepo, quiz.NewRoomCache(redisClient, cfg.Session.QuizCacheTTL), logger)
	hub := ws.NewHub(logger)

	sessionSvc := session.NewService(store, hub, codes, catalog, sessionRepo, session.Options{
		DefaultQuestionDuration: cfg.Session.DefaultQuestionDuration,
		CodeTTL:                 cfg.RoomCode.TTL,
		PresenceGrace:           cfg.Session.PresenceGrace,
		Scoring:                 scoring.ScoringConfig{BaseScore: cfg.Session.BaseScore},
	}, logger)

	wsHandler := session.NewHandler(sessionSvc, server.NewUpgrader(cfg.CORS), logger)
	httpHandlers := session.NewHTTPHandlers(sessionSvc, logger)

	var archiveWorker *session.ArchiveWorker
	if interval := cfg.Archive.SweepInterval; interval > 0 {
		archiveWorker = session.NewArchiveWorker(store, sessionRepo, interval, cfg.Archive.BatchSize, logger)
	}

	deps := []server.Pinger{
		pool,
		server.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}
	apiServer := server.NewHTTPServer(cfg.HTTPAddr, logger, deps, server.Routes{
		WebSocket:       wsHandler.HandleWebSocket,
		CreateRoom:      httpHandlers.CreateRoom,
		RoomInfo:        httpHandlers.RoomInfo,
		RoomHistory:     httpHandlers.RoomHistory,
		ArchivedSession: httpHandlers.ArchivedSession,
		Quizzes:         httpHandlers.Quizzes,
	})

	return &Application{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		redis:         redisClient,
		codes:         codes,
		session:       sessionSvc,
		http:          apiServer,
		archiveWorker: archiveWorker,
		bgCancels:     make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.session.Close()

	if err := a.codes.Close(); err != nil {
		a.logger.Error().Err(err).Msg("room code client shutdown error")
	}
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.archiveWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.archiveWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("archive worker stopped")
			}
		}()
	}
}
