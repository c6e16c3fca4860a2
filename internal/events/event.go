// Package events carries question bank change notifications from the API to
// live WebSocket subscribers, through Redis Pub/Sub when it is configured.
package events

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

const (
	TypeQuestionCreated = ws.TypeQuestionCreated
	TypeQuestionDeleted = ws.TypeQuestionDeleted
)

// Event describes a single change to the question bank.
type Event struct {
	Type       string          `json:"type"`
	QuestionID int64           `json:"question_id"`
	Question   json.RawMessage `json:"question,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Message converts the event into the feed wire format.
func (e Event) Message() (ws.Message, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return ws.Message{}, err
	}
	return ws.Message{Type: e.Type, Payload: raw}, nil
}

// LocalPublisher hands events straight to an in-process hub. It is used when
// no Redis is configured, so only subscribers of this instance see them.
type LocalPublisher struct {
	hub *ws.Hub
}

func NewLocalPublisher(hub *ws.Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, evt Event) error {
	msg, err := evt.Message()
	if err != nil {
		return err
	}
	return p.hub.BroadcastAll(msg)
}
