package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/server/middleware"
	redisstore "github.com/citylaw/docket/internal/store/redis"
)

// Subscriber is the pub/sub side the hub reads from. *redisstore.PubSub
// satisfies this interface.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams Redis pub/sub messages to WebSocket clients.
type Hub struct {
	pubsub         Subscriber
	originPatterns []string
}

// NewHub creates a hub. originPatterns are host patterns allowed to open
// cross-origin connections; same-origin is always accepted.
func NewHub(pubsub Subscriber, originPatterns ...string) *Hub {
	return &Hub{pubsub: pubsub, originPatterns: originPatterns}
}

// ServeNotifications pushes the caller's notifications as they are created.
// Each message is one JSON-encoded notification published on the user's
// channel. The route must sit behind middleware.Auth.
func (h *Hub) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	channel := redisstore.UserChannel(userID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Str("user_id", userID.String()).Msg("websocket write")
				return
			}
		}
	}
}
