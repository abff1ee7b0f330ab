package handler

import (
	"net/http"
	"time"

	"matchlink/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWebSocket upgrades an authenticated request and streams the
// wallet's ChatReadyEvents until either side closes.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	wallet := WalletFrom(c)

	u := upgrader
	u.CheckOrigin = func(r *http.Request) bool {
		if h.CORS == nil || r.Header.Get("Origin") == "" {
			return true
		}
		return h.CORS.OriginAllowed(r)
	}

	conn, err := u.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("wallet", wallet).Msg("websocket upgrade failed")
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, wallet)
	if !h.Hub.Register(client) {
		log.Debug().Str("wallet", wallet).Msg("hub stopped, closing websocket")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		conn.Close()
		return
	}
	client.Run()
}
