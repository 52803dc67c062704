// Package ws streams task change events to WebSocket clients, backed by
// the Redis change channel. Clients still poll /changes as the fallback;
// the stream just shortens the notice.
package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cptapp/cpt/internal/notify"
)

// Hub fans change events out to WebSocket connections.
type Hub struct {
	broadcaster *notify.Broadcaster
}

func NewHub(broadcaster *notify.Broadcaster) *Hub {
	return &Hub{broadcaster: broadcaster}
}

// ServeChanges upgrades the request and forwards every change event
// until the client disconnects.
func (h *Hub) ServeChanges(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.broadcaster.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, ok := <-messages:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
