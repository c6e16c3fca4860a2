package errors

// Default messages for the error envelope.
const (
	MsgBadRequest         = "Bad request"
	MsgNotFound           = "Resource not found"
	MsgUnprocessable      = "Unprocessable request"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service unavailable"
	MsgInvalidJSON        = "Invalid JSON payload"
)
