package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the envelope written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondError writes a standardized error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	write(w, status, ErrorResponse{
		Error:   status,
		Message: message,
	})
}

// RespondValidationError writes a 400 envelope naming the offending field.
func RespondValidationError(w http.ResponseWriter, message, field string) {
	write(w, http.StatusBadRequest, ErrorResponse{
		Error:   http.StatusBadRequest,
		Message: message,
		Field:   field,
	})
}

// RespondBadRequest writes a bad request envelope.
func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, message)
}

// RespondNotFound writes a not found envelope.
func RespondNotFound(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusNotFound, message)
}

// RespondUnprocessable writes an unprocessable entity envelope.
func RespondUnprocessable(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnprocessableEntity, message)
}

// RespondInternalError writes an internal server error envelope.
func RespondInternalError(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusInternalServerError, message)
}

// RespondServiceUnavailable writes a service unavailable envelope.
func RespondServiceUnavailable(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusServiceUnavailable, message)
}

func write(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
