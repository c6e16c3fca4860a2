package events

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// FeedHandler upgrades GET /ws/questions and streams question events to the client.
type FeedHandler struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewFeedHandler(hub *ws.Hub, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		logger: logger.With().Str("component", "question_feed").Logger(),
	}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.New()
	logger := h.logger.With().Str("conn_id", id.String()).Logger()
	wsConn := ws.NewConnection(conn, logger)
	h.hub.Register(id, wsConn)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			return wsConn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		}
		return nil
	})

	h.hub.Unregister(id)
}
