package chathub

import (
	"encoding/json"
	"time"

	"matchlink/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// WebSocketClient надсилає події chat-ready у браузер. Потік односторонній,
// усе, що надсилає клієнт, відкидається.
type WebSocketClient struct {
	Wallet string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.ChatReadyEvent
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, wallet string) *WebSocketClient {
	return &WebSocketClient{
		Wallet: models.NormalizeAddress(wallet),
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.ChatReadyEvent, sendBuffer),
	}
}

func (c *WebSocketClient) GetWallet() string                            { return c.Wallet }
func (c *WebSocketClient) GetSendChannel() chan<- models.ChatReadyEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close зупиняє writePump, який закриває з'єднання.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("wallet", c.Wallet).Msg("websocket read failed")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("wallet", c.Wallet).Msg("failed to encode chat ready event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Ping підтримує з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
