package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSHandler upgrades dashboard connections and pumps hub frames to them.
// The subscription's first frame is always the history replay, so a client
// renders the recent past before live events arrive.
type WSHandler struct {
	hub out.RealtimePort
	log zerolog.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(hub out.RealtimePort, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log.With().Str("component", "ws_handler").Logger(),
	}
}

// Register registers routes.
func (h *WSHandler) Register(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.handle))
}

func (h *WSHandler) handle(conn *websocket.Conn) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	h.log.Info().Str("subscription_id", sub.ID).Msg("dashboard connected")

	// Reader goroutine only detects the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug().Err(err).Str("subscription_id", sub.ID).Msg("write failed, dropping connection")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			h.log.Info().Str("subscription_id", sub.ID).Msg("dashboard disconnected")
			return
		}
	}
}
