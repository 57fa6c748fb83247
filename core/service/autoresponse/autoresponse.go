// Package autoresponse sends the AI-drafted reply back to the customer when
// the churn score is low enough to not require human validation.
package autoresponse

import (
	"context"
	"fmt"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// Service is an analyzer result sink. Messages scoring at or above the
// auto-send threshold are left for a human to validate.
type Service struct {
	clients  out.ClientRepository
	messages out.MessageRepository
	mailer   out.Mailer
}

// New creates the auto-response stage.
func New(clients out.ClientRepository, messages out.MessageRepository, mailer out.Mailer) *Service {
	return &Service{
		clients:  clients,
		messages: messages,
		mailer:   mailer,
	}
}

// Name implements analyzer.ResultSink.
func (s *Service) Name() string { return "auto-response" }

// HandleResult sends the first suggested reply (the empathetic tone) when the
// score allows an automatic answer.
func (s *Service) HandleResult(ctx context.Context, msg *domain.ScoredMessage) error {
	if msg.Score >= domain.ScoreAutoSend {
		logger.Debug("[AutoResponse] score %d requires validation, skipping auto-send", msg.Score)
		return nil
	}

	if len(msg.SuggestedReplies) == 0 {
		logger.Warn("[AutoResponse] no suggested reply for message %s", msg.ID)
		return nil
	}

	client, err := s.clients.FindByID(ctx, msg.ClientID)
	if err != nil {
		return fmt.Errorf("client lookup: %w", err)
	}
	if client == nil || client.Email == "" {
		logger.Warn("[AutoResponse] client %s has no email, skipping", msg.ClientID)
		return nil
	}

	reply := msg.SuggestedReplies[0]

	subject := "Re: your message"
	if msg.Subject != "" {
		subject = "Re: " + msg.Subject
	}

	if err := s.mailer.Send(ctx, client.Email, subject, buildReplyHTML(client.Name, msg.Text, reply.Text)); err != nil {
		return fmt.Errorf("send auto-reply: %w", err)
	}

	logger.WithField("client_id", msg.ClientID).Info("[AutoResponse] reply sent to %s", client.Email)

	if err := s.messages.MarkResponseSent(ctx, msg.ID, reply.Tone, reply.Text); err != nil {
		logger.WithError(err).Error("[AutoResponse] could not record sent response for %s", msg.ID)
	}
	return nil
}

func buildReplyHTML(clientName, originalMessage, response string) string {
	excerpt := originalMessage
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family:-apple-system,'Segoe UI',sans-serif;line-height:1.6;color:#374151;max-width:600px;margin:0 auto;padding:20px">
  <div style="background:#4f46e5;padding:24px;border-radius:12px 12px 0 0;text-align:center;color:white">
    <h1 style="margin:0;font-size:24px">We received your message</h1>
  </div>
  <div style="background:white;padding:24px;border:1px solid #e5e7eb;border-top:none;border-radius:0 0 12px 12px">
    <p>Hello <strong>%s</strong>,</p>
    <p>Thank you for reaching out:</p>
    <div style="background:#f3f4f6;padding:16px;border-radius:8px;border-left:4px solid #4f46e5;font-style:italic">%s</div>
    <div style="margin:24px 0;line-height:1.8">%s</div>
    <p>Best regards,<br><strong>The Support Team</strong></p>
    <div style="margin-top:24px;padding-top:16px;border-top:1px solid #e5e7eb;font-size:13px;color:#6b7280;text-align:center">
      This reply was generated automatically. Answer this email if you need further assistance.
    </div>
  </div>
</body>
</html>`, clientName, excerpt, response)
}
