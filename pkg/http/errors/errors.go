package errors

import (
	"encoding/json"
	"net/http"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondJSON writes data with the given status.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes a standardized error response to the HTTP response writer
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// RespondValidationError writes a validation error response with field information
func RespondValidationError(w http.ResponseWriter, message, field string) {
	RespondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   ErrCodeValidationFailed,
		Message: message,
		Field:   field,
	})
}

// RespondFrom maps a typed error to its HTTP status and code. Untyped errors become 500s.
func RespondFrom(w http.ResponseWriter, err error) {
	e := errs.Convert(err)
	message := e.Message
	if e.Code == errs.CodeInternal {
		message = "Internal server error"
	}
	RespondError(w, e.HTTPStatusCode(), CodeFor(e.Code), message)
}

// CodeFor returns the public error code for a taxonomy code.
func CodeFor(code errs.Code) string {
	switch code {
	case errs.CodeValidation:
		return ErrCodeValidationFailed
	case errs.CodeNotFound:
		return ErrCodeNotFound
	case errs.CodeRejected:
		return ErrCodeRejected
	case errs.CodeUnavailable:
		return ErrCodeServiceUnavailable
	case errs.CodeExhausted:
		return ErrCodeCodeSpaceExhausted
	default:
		return ErrCodeInternalError
	}
}

// RespondNotFound writes a not found error response
func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

// RespondBadRequest writes a bad request error response
func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}

// RespondMethodNotAllowed writes a 405 response
func RespondMethodNotAllowed(w http.ResponseWriter) {
	RespondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}
