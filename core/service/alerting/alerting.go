// Package alerting raises critical alerts when a scored message crosses the
// critical threshold: it publishes an AlertEvent on the alerts topic,
// persists it, and emails the configured administrator.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// Service is an analyzer result sink for critical messages.
type Service struct {
	clients    out.ClientRepository
	messages   out.MessageRepository
	alerts     out.AlertRepository
	producer   out.StreamProducer
	mailer     out.Mailer
	adminEmail string
}

// New creates the alerting stage. Mailer and adminEmail may be empty; the
// alert is still published and persisted.
func New(
	clients out.ClientRepository,
	messages out.MessageRepository,
	alerts out.AlertRepository,
	producer out.StreamProducer,
	mailer out.Mailer,
	adminEmail string,
) *Service {
	return &Service{
		clients:    clients,
		messages:   messages,
		alerts:     alerts,
		producer:   producer,
		mailer:     mailer,
		adminEmail: adminEmail,
	}
}

// Name implements analyzer.ResultSink.
func (s *Service) Name() string { return "admin-alert" }

// HandleResult raises an alert when the score is critical.
func (s *Service) HandleResult(ctx context.Context, msg *domain.ScoredMessage) error {
	if !msg.IsCritical() {
		return nil
	}

	logger.WithField("client_id", msg.ClientID).Warn("[Alerting] critical score %d for message %s", msg.Score, msg.ID)

	client, err := s.clients.FindByID(ctx, msg.ClientID)
	if err != nil {
		return fmt.Errorf("client lookup: %w", err)
	}

	alert := &domain.AlertEvent{
		MessageID: msg.ID,
		ClientID:  msg.ClientID,
		Score:     msg.Score,
		Text:      msg.Text,
		Timestamp: time.Now().UTC(),
	}
	if client != nil {
		alert.ClientName = client.Name
		alert.ClientEmail = client.Email
	}

	if err := s.producer.PublishAlert(ctx, alert); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	if err := s.alerts.SaveAlert(ctx, alert); err != nil {
		logger.WithError(err).Error("[Alerting] could not persist alert for %s", msg.ID)
	}

	if err := s.messages.MarkAlertSent(ctx, msg.ID); err != nil {
		logger.WithError(err).Error("[Alerting] could not flag message %s as alerted", msg.ID)
	}

	if s.mailer != nil && s.adminEmail != "" {
		subject := fmt.Sprintf("CRITICAL CLIENT - Score %d/100 - %s", msg.Score, alert.ClientName)
		if err := s.mailer.Send(ctx, s.adminEmail, subject, buildAlertHTML(msg, alert)); err != nil {
			logger.WithError(err).Error("[Alerting] could not email admin for %s", msg.ID)
		}
	}

	return nil
}

func buildAlertHTML(msg *domain.ScoredMessage, alert *domain.AlertEvent) string {
	reasons := ""
	for _, r := range msg.Reasons {
		reasons += fmt.Sprintf("<li>%s</li>", r)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family:-apple-system,'Segoe UI',sans-serif;line-height:1.6;color:#374151;max-width:600px;margin:0 auto;padding:20px">
  <div style="background:#dc2626;padding:24px;border-radius:12px 12px 0 0;text-align:center;color:white">
    <h1 style="margin:0;font-size:24px">Critical client alert</h1>
    <p style="margin:8px 0 0;opacity:.9">Churn score %d/100</p>
  </div>
  <div style="background:white;padding:24px;border:1px solid #e5e7eb;border-top:none;border-radius:0 0 12px 12px">
    <p><strong>Client:</strong> %s (%s)</p>
    <p><strong>Message:</strong></p>
    <div style="background:#fef2f2;padding:16px;border-radius:8px;border-left:4px solid #dc2626;font-style:italic">%s</div>
    <p><strong>Detected reasons:</strong></p>
    <ul>%s</ul>
    <p><strong>Recommended action:</strong> %s</p>
  </div>
</body>
</html>`, msg.Score, alert.ClientName, alert.ClientEmail, msg.Text, reasons, msg.Action)
}
