// Package http implements the inbound HTTP adapters.
package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/ingest"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/pipeline"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/apperr"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/response"
)

// MessageHandler exposes message submission and the replay history endpoint.
type MessageHandler struct {
	ingest   *ingest.Service
	pipeline *pipeline.Pipeline
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(ingest *ingest.Service, pipeline *pipeline.Pipeline) *MessageHandler {
	return &MessageHandler{
		ingest:   ingest,
		pipeline: pipeline,
	}
}

// Register registers routes.
func (h *MessageHandler) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/send-message", h.SendMessage)
	api.Get("/history", h.History)
}

type sendMessageRequest struct {
	ClientID string `json:"clientId"`
	Text     string `json:"text"`
}

// SendMessage accepts a raw customer message and queues it for analysis.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if err := h.ingest.Submit(c.Context(), req.ClientID, req.Text); err != nil {
		return err
	}

	return response.OK(c, fiber.Map{"queued": true})
}

// History returns the bounded replay buffers, most recent entries only.
func (h *MessageHandler) History(c *fiber.Ctx) error {
	messages, alerts := h.pipeline.History()
	return response.OK(c, fiber.Map{
		"messages": messages,
		"alerts":   alerts,
	})
}
