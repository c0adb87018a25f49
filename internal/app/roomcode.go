package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/gokatarajesh/quiz-rooms/internal/config"
	"github.com/gokatarajesh/quiz-rooms/internal/logging"
	"github.com/gokatarajesh/quiz-rooms/internal/roomcode"
	"github.com/gokatarajesh/quiz-rooms/internal/server"
)

const roomCodeShutdownTimeout = 10 * time.Second

// RoomCodeApplication serves the room code gRPC service and its metrics endpoint.
type RoomCodeApplication struct {
	cfg    *config.RoomCodeService
	logger zerolog.Logger

	redis   *redis.Client
	grpc    *grpc.Server
	metrics *http.Server
}

func NewRoomCode(cfg *config.RoomCodeService) *RoomCodeApplication {
	logger := logging.New(cfg.Name, cfg.Env)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	grpcServer := grpc.NewServer(logging.GRPCServerInterceptor(logger.With().Str("component", "roomcode_grpc").Logger()))
	roomcode.Register(grpcServer, roomcode.NewService(roomcode.NewAllocator(redisClient, logger), logger))

	deps := []server.Pinger{
		server.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}

	return &RoomCodeApplication{
		cfg:     cfg,
		logger:  logger,
		redis:   redisClient,
		grpc:    grpcServer,
		metrics: server.NewMetricsServer(cfg.GRPC.MetricsAddr, logger, deps),
	}
}

// Run serves until ctx is canceled or either server fails.
func (a *RoomCodeApplication) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.GRPC.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPC.ListenAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.GRPC.ListenAddr).Msg("room code service listening")
		return a.grpc.Serve(lis)
	})

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.GRPC.MetricsAddr).Msg("metrics server listening")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down room code service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), roomCodeShutdownTimeout)
		defer cancel()
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("metrics shutdown error")
		}
		a.grpc.GracefulStop()
		return nil
	})

	err = g.Wait()
	if cerr := a.redis.Close(); cerr != nil {
		a.logger.Error().Err(cerr).Msg("redis shutdown error")
	}
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	a.logger.Info().Msg("shutdown complete")
	return nil
}
