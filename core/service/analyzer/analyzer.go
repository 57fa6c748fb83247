// Package analyzer implements the deferred analysis queue: it drains pending
// messages from the document store, dispatches each one to the scoring
// backend and writes the verdict back. Failures are isolated per item and
// terminal — a message is attempted exactly once.
package analyzer

import (
	"context"
	"time"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/logger"
)

// Defaults for the polling queue.
const (
	DefaultBatchSize    = 5
	DefaultHistoryDepth = 20
)

// ResultSink consumes every successfully scored message. Sinks run after the
// verdict is persisted and published; a sink error never affects the item's
// outcome or the other sinks.
type ResultSink interface {
	// Name identifies the sink in logs.
	Name() string

	// HandleResult reacts to one scored message.
	HandleResult(ctx context.Context, msg *domain.ScoredMessage) error
}

// Service is the deferred analysis queue worker.
type Service struct {
	messages     out.MessageRepository
	clients      out.ClientRepository
	scorer       out.MessageScorer
	producer     out.StreamProducer
	sinks        []ResultSink
	batchSize    int
	historyDepth int
}

// Config for the analyzer service.
type Config struct {
	BatchSize    int
	HistoryDepth int
}

// New creates the analyzer. The producer may be nil in deployments that wire
// result sinks only.
func New(
	messages out.MessageRepository,
	clients out.ClientRepository,
	scorer out.MessageScorer,
	producer out.StreamProducer,
	cfg Config,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = DefaultHistoryDepth
	}
	return &Service{
		messages:     messages,
		clients:      clients,
		scorer:       scorer,
		producer:     producer,
		batchSize:    cfg.BatchSize,
		historyDepth: cfg.HistoryDepth,
	}
}

// AddSink registers a downstream result consumer. Sinks run in registration
// order.
func (s *Service) AddSink(sink ResultSink) {
	s.sinks = append(s.sinks, sink)
}

// ProcessBatch runs one queue tick: fetch up to batchSize pending messages
// and analyze each independently. Returns the number of items picked up.
func (s *Service) ProcessBatch(ctx context.Context) (int, error) {
	pending, err := s.messages.FindPendingBatch(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	logger.Info("[Analyzer] %d messages to analyze", len(pending))

	for i := range pending {
		s.processItem(ctx, &pending[i])
	}
	return len(pending), nil
}

// processItem analyzes a single message. A scoring failure is terminal for
// the item: needs_analysis is cleared and the cause recorded, no retry.
// Storage read failures leave the item pending for the next tick.
func (s *Service) processItem(ctx context.Context, pending *domain.PendingMessage) {
	log := logger.WithField("client_id", pending.ClientID).WithField("message_id", pending.ID)

	history, err := s.messages.RecentHistory(ctx, pending.ClientID, s.historyDepth)
	if err != nil {
		log.WithError(err).Error("[Analyzer] history lookup failed, will retry next tick")
		return
	}

	client, err := s.clients.FindByID(ctx, pending.ClientID)
	if err != nil {
		log.WithError(err).Warn("[Analyzer] client lookup failed, scoring without profile")
		client = nil
	}

	started := time.Now()
	result, err := s.scorer.Score(ctx, pending.Text, pending.ClientID, history, client)
	if err != nil {
		log.WithError(err).Error("[Analyzer] scoring failed, marking message as failed")
		if failErr := s.messages.FailAnalysis(ctx, pending.ID, err.Error()); failErr != nil {
			log.WithError(failErr).Error("[Analyzer] could not record analysis failure")
		}
		return
	}

	if err := s.messages.CompleteAnalysis(ctx, pending.ID, result); err != nil {
		log.WithError(err).Error("[Analyzer] write-back failed, will retry next tick")
		return
	}

	scored := &domain.ScoredMessage{
		ID:               pending.ID,
		ClientID:         pending.ClientID,
		Text:             pending.Text,
		Subject:          pending.Subject,
		Score:            result.Score,
		Sentiment:        result.Sentiment,
		Reasons:          result.Reasons,
		Action:           result.Action,
		Keywords:         result.Keywords,
		SuggestedReplies: result.SuggestedReplies,
		Timestamp:        time.Now().UTC(),
	}

	log.WithDuration(time.Since(started)).Info("[Analyzer] message scored %d/100", scored.Score)

	if s.producer != nil {
		if err := s.producer.PublishScored(ctx, scored); err != nil {
			log.WithError(err).Error("[Analyzer] failed to publish scored message")
		}
	}

	for _, sink := range s.sinks {
		if err := sink.HandleResult(ctx, scored); err != nil {
			log.WithError(err).Error("[Analyzer] sink %s failed", sink.Name())
		}
	}
}
