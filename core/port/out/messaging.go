package out

import (
	"context"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// StreamProducer publishes pipeline events onto the event-stream broker.
type StreamProducer interface {
	// PublishInbound puts a raw message on the inbound topic for scoring.
	PublishInbound(ctx context.Context, msg *domain.InboundMessage) error

	// PublishScored puts a scored message on the outbound scores topic.
	PublishScored(ctx context.Context, msg *domain.ScoredMessage) error

	// PublishAlert puts a critical alert on the alerts topic.
	PublishAlert(ctx context.Context, alert *domain.AlertEvent) error
}
