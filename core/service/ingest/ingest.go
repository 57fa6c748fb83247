// Package ingest is the gateway for externally submitted raw messages.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/apperr"
)

// Service validates raw submissions and publishes them on the inbound topic.
type Service struct {
	producer out.StreamProducer
}

// New creates the ingestion gateway.
func New(producer out.StreamProducer) *Service {
	return &Service{producer: producer}
}

// Submit accepts a raw (clientId, text) pair. Empty fields are a client
// error; a broker failure surfaces as an internal error.
func (s *Service) Submit(ctx context.Context, clientID, text string) error {
	if strings.TrimSpace(clientID) == "" {
		return apperr.MissingField("clientId")
	}
	if strings.TrimSpace(text) == "" {
		return apperr.MissingField("text")
	}

	msg := &domain.InboundMessage{
		ClientID:  clientID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishInbound(ctx, msg); err != nil {
		return apperr.BrokerError("publish inbound message", err)
	}
	return nil
}
