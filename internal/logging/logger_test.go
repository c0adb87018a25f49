package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := IntoContext(context.Background(), logger)
	got := FromContext(ctx)
	got.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, FromContext(context.Background()).GetLevel())
}

func TestGRPCLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := grpcLogger(zerolog.New(&buf))

	l.Log(context.Background(), logging.LevelWarn, "finished call", "grpc.method", "ResolveRoomCode", "grpc.code", "NotFound")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"grpc.method":"ResolveRoomCode"`)
	assert.Contains(t, out, `"message":"finished call"`)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	hub := Component(zerolog.New(&buf), "hub")
	hub.Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"hub"`)
}
