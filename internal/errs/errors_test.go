package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestError_StatusMapping(t *testing.T) {
	tests := map[string]struct {
		err      *Error
		grpcCode codes.Code
		httpCode int
	}{
		"validation":  {err: Validation("bad frame"), grpcCode: codes.InvalidArgument, httpCode: http.StatusBadRequest},
		"not found":   {err: NotFound("room %s", "ABCDE"), grpcCode: codes.NotFound, httpCode: http.StatusNotFound},
		"rejected":    {err: Rejected("late"), grpcCode: codes.FailedPrecondition, httpCode: http.StatusConflict},
		"unavailable": {err: Unavailable(errors.New("dial"), "allocator down"), grpcCode: codes.Unavailable, httpCode: http.StatusServiceUnavailable},
		"exhausted":   {err: Exhausted("no free code"), grpcCode: codes.ResourceExhausted, httpCode: http.StatusServiceUnavailable},
		"internal":    {err: Internal(errors.New("boom")), grpcCode: codes.Internal, httpCode: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.grpcCode, tt.err.GRPCStatus().Code())
			assert.Equal(t, tt.httpCode, tt.err.HTTPStatusCode())
		})
	}
}

func TestConvert(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NotFound("room code %q", "ZZZZZ"))

	got := Convert(wrapped)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.True(t, errors.Is(wrapped, NotFound("")))
	assert.False(t, errors.Is(wrapped, Rejected("")))

	plain := Convert(errors.New("boom"))
	assert.Equal(t, CodeInternal, plain.Code)
}

func TestFromStatus(t *testing.T) {
	exhausted := FromStatus(status.Error(codes.ResourceExhausted, "try a longer code"))
	require.Equal(t, CodeExhausted, exhausted.Code)
	assert.Equal(t, "try a longer code", exhausted.Message)

	down := FromStatus(status.Error(codes.DeadlineExceeded, "deadline"))
	assert.Equal(t, CodeUnavailable, down.Code)

	nonStatus := FromStatus(errors.New("connection refused"))
	assert.Equal(t, CodeUnavailable, nonStatus.Code)
	assert.True(t, HasCode(fmt.Errorf("x: %w", nonStatus), CodeUnavailable))
}
