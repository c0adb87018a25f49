package logging

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// GRPCServerInterceptor logs the start and finish of every unary call served.
func GRPCServerInterceptor(l zerolog.Logger) grpc.ServerOption {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
	}

	return grpc.ChainUnaryInterceptor(
		logging.UnaryServerInterceptor(grpcLogger(l), opts...),
	)
}

// GRPCClientInterceptor logs finished outbound unary calls.
func GRPCClientInterceptor(l zerolog.Logger) grpc.DialOption {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
	}

	return grpc.WithChainUnaryInterceptor(
		logging.UnaryClientInterceptor(grpcLogger(l), opts...),
	)
}

func grpcLogger(l zerolog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.WithLevel(zerologLevel(lvl)).Fields(fields).Msg(msg)
	})
}

func zerologLevel(lvl logging.Level) zerolog.Level {
	switch lvl {
	case logging.LevelDebug:
		return zerolog.DebugLevel
	case logging.LevelInfo:
		return zerolog.InfoLevel
	case logging.LevelWarn:
		return zerolog.WarnLevel
	case logging.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
