// Package errs is the error taxonomy shared by the room engine, the HTTP layer and the room code RPC.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Code codes.Code

const (
	CodeValidation  = Code(codes.InvalidArgument)
	CodeNotFound    = Code(codes.NotFound)
	CodeRejected    = Code(codes.FailedPrecondition)
	CodeUnavailable = Code(codes.Unavailable)
	CodeExhausted   = Code(codes.ResourceExhausted)
	CodeInternal    = Code(codes.Internal)
)

var code2http = map[Code]int{
	CodeValidation:  http.StatusBadRequest,
	CodeNotFound:    http.StatusNotFound,
	CodeRejected:    http.StatusConflict,
	CodeUnavailable: http.StatusServiceUnavailable,
	CodeExhausted:   http.StatusServiceUnavailable,
	CodeInternal:    http.StatusInternalServerError,
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", codes.Code(e.Code), e.Message)
	if e.err != nil {
		s += fmt.Sprintf(": %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches on code so callers can test with errors.Is(err, errs.NotFound("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.Code(e.Code), e.Message)
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

// FromStatus rebuilds a typed error from a gRPC error returned by a remote call.
func FromStatus(err error) *Error {
	st, ok := status.FromError(err)
	if !ok {
		return New(CodeUnavailable, WithMessagef("%s", err), WithCause(err))
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.ResourceExhausted, codes.Internal:
		return New(Code(st.Code()), WithMessagef("%s", st.Message()), WithCause(err))
	default:
		return New(CodeUnavailable, WithMessagef("%s", st.Message()), WithCause(err))
	}
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, WithMessagef(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, WithMessagef(format, args...))
}

func Rejected(format string, args ...any) *Error {
	return New(CodeRejected, WithMessagef(format, args...))
}

func Unavailable(err error, format string, args ...any) *Error {
	return New(CodeUnavailable, WithMessagef(format, args...), WithCause(err))
}

func Exhausted(format string, args ...any) *Error {
	return New(CodeExhausted, WithMessagef(format, args...))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
