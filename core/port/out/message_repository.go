package out

import (
	"context"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
)

// MessageRepository persists message documents in the document store.
// Each operation is atomic at single-document granularity; no cross-document
// transactions are assumed.
type MessageRepository interface {
	// SavePending stores a raw message with needs_analysis=true.
	SavePending(ctx context.Context, msg *domain.PendingMessage) error

	// SaveScored stores a fully scored message keyed by its id.
	SaveScored(ctx context.Context, msg *domain.ScoredMessage) error

	// FindPendingBatch returns up to limit messages with needs_analysis=true.
	// Selection order within a batch is not significant.
	FindPendingBatch(ctx context.Context, limit int) ([]domain.PendingMessage, error)

	// CompleteAnalysis writes the score fields back and clears needs_analysis.
	CompleteAnalysis(ctx context.Context, id string, result *domain.AnalysisResult) error

	// FailAnalysis clears needs_analysis and records a terminal error.
	// The message is never selected by FindPendingBatch again.
	FailAnalysis(ctx context.Context, id string, cause string) error

	// RecentHistory returns the latest scored interactions for a client,
	// newest first, for use as scoring context.
	RecentHistory(ctx context.Context, clientID string, limit int) ([]domain.HistoryEntry, error)

	// MarkResponseSent records that an auto-reply went out for a message.
	MarkResponseSent(ctx context.Context, id string, tone, text string) error

	// MarkAlertSent records that an admin alert went out for a message.
	MarkAlertSent(ctx context.Context, id string) error
}

// AlertRepository persists raised critical alerts.
type AlertRepository interface {
	SaveAlert(ctx context.Context, alert *domain.AlertEvent) error
}
