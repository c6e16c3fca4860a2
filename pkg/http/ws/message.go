package ws

import "encoding/json"

// MessageType constants for the question feed protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong            = "pong"
	TypeQuestionCreated = "question_created"
	TypeQuestionDeleted = "question_deleted"
	TypeError           = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// QuestionDeletedPayload is sent when a question leaves the bank.
type QuestionDeletedPayload struct {
	ID int64 `json:"id"`
}
