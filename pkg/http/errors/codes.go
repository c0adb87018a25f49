package errors

// Error codes for standardized error responses and socket error frames
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidRoomCode  = "invalid_room_code"

	// Resource errors
	ErrCodeNotFound        = "not_found"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeQuizNotFound    = "quiz_not_found"
	ErrCodeSessionNotFound = "session_not_found"

	// Session errors
	ErrCodeRejected           = "rejected"
	ErrCodeSessionEnded       = "session_ended"
	ErrCodeRoomCreationFailed = "room_creation_failed"
	ErrCodeCodeSpaceExhausted = "code_space_exhausted"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeForbiddenRole      = "forbidden_role"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)
