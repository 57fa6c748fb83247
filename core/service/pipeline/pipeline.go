// Package pipeline wires the scored-event stream into the live view: every
// accepted record is persisted, buffered, fed to the analytics engine and
// fanned out to subscribers, in arrival order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/analytics"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/service/history"
)

// Replay sizes for new subscribers and the history endpoint.
const (
	ReplayMessages = 20
	ReplayAlerts   = 10
)

// Pipeline consumes the two outbound topics plus the inbound topic. A
// malformed record is logged and dropped, never retried and never fatal; a
// storage failure is logged and the record still reaches the live view.
type Pipeline struct {
	messages out.MessageRepository
	msgBuf   *history.MessageBuffer
	alertBuf *history.AlertBuffer
	engine   *analytics.Engine
	realtime out.RealtimePort
	log      zerolog.Logger
}

// New creates the pipeline stage.
func New(
	messages out.MessageRepository,
	msgBuf *history.MessageBuffer,
	alertBuf *history.AlertBuffer,
	engine *analytics.Engine,
	realtime out.RealtimePort,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		messages: messages,
		msgBuf:   msgBuf,
		alertBuf: alertBuf,
		engine:   engine,
		realtime: realtime,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// HandleScored processes one record of the scores topic. The returned error
// is nil for malformed records (drop + ack) and for storage failures (the
// live view is prioritized over persistence consistency).
func (p *Pipeline) HandleScored(ctx context.Context, data []byte) error {
	var msg domain.ScoredMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.log.Error().Err(err).Msg("dropping malformed scored record")
		return nil
	}
	if err := validateScored(&msg); err != nil {
		p.log.Error().Err(err).Msg("dropping invalid scored record")
		return nil
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	p.log.Info().Str("client_id", msg.ClientID).Int("score", msg.Score).Msg("score received")

	if err := p.messages.SaveScored(ctx, &msg); err != nil {
		p.log.Error().Err(err).Str("message_id", msg.ID).Msg("storage write failed, broadcasting anyway")
	}

	p.msgBuf.Append(msg)
	p.engine.Ingest(&msg)

	p.realtime.Publish(domain.NewEvent(domain.EventChurnScore, msg))
	p.realtime.Publish(domain.NewEvent(domain.EventAnalyticsUpdate, p.engine.Snapshot()))
	return nil
}

// HandleAlert processes one record of the alerts topic: buffer and broadcast
// only, no persistence and no analytics feed.
func (p *Pipeline) HandleAlert(ctx context.Context, data []byte) error {
	var alert domain.AlertEvent
	if err := json.Unmarshal(data, &alert); err != nil {
		p.log.Error().Err(err).Msg("dropping malformed alert record")
		return nil
	}
	if alert.ClientID == "" {
		p.log.Error().Msg("dropping alert record without client id")
		return nil
	}

	p.log.Warn().Str("client_id", alert.ClientID).Int("score", alert.Score).Msg("critical alert received")

	p.alertBuf.Append(alert)
	p.realtime.Publish(domain.NewEvent(domain.EventCriticalAlert, alert))
	return nil
}

// HandleInbound materializes a raw submission as a pending document for the
// analyzer. A storage failure is returned so the record stays pending on the
// broker and is redelivered.
func (p *Pipeline) HandleInbound(ctx context.Context, data []byte) error {
	var msg domain.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.log.Error().Err(err).Msg("dropping malformed inbound record")
		return nil
	}
	if msg.ClientID == "" || msg.Text == "" {
		p.log.Error().Msg("dropping inbound record with missing fields")
		return nil
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	pending := &domain.PendingMessage{
		ID:            uuid.NewString(),
		ClientID:      msg.ClientID,
		Text:          msg.Text,
		Subject:       msg.Subject,
		NeedsAnalysis: true,
		CreatedAt:     msg.Timestamp,
	}
	if err := p.messages.SavePending(ctx, pending); err != nil {
		return fmt.Errorf("save pending message: %w", err)
	}

	p.log.Info().Str("client_id", msg.ClientID).Str("message_id", pending.ID).Msg("inbound message queued for analysis")
	return nil
}

// History returns the replay snapshot served to new subscribers and the REST
// history endpoint.
func (p *Pipeline) History() ([]domain.ScoredMessage, []domain.AlertEvent) {
	return p.msgBuf.Snapshot(ReplayMessages), p.alertBuf.Snapshot(ReplayAlerts)
}

func validateScored(msg *domain.ScoredMessage) error {
	if msg.ClientID == "" {
		return fmt.Errorf("missing client id")
	}
	if msg.Score < 0 || msg.Score > 100 {
		return fmt.Errorf("score %d out of range", msg.Score)
	}
	return nil
}
